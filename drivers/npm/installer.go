package npm

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/emenda-labs/relevo/core/driver"
	"github.com/emenda-labs/relevo/pkg/logging"
)

var _ driver.Installer = (*YarnInstaller)(nil)

// YarnInstaller refreshes a project by running "yarn install" in it, which
// re-resolves the rewritten ranges and regenerates the lockfile.
type YarnInstaller struct {
	// Stdout and Stderr receive yarn's output; nil routes to this process's
	// streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Install runs yarn install in dir.
func (i *YarnInstaller) Install(ctx context.Context, dir string) error {
	log := logging.GetLogger("installer")
	log.Info().Str("dir", dir).Msg("running yarn install")

	cmd := exec.CommandContext(ctx, "yarn", "install")
	cmd.Dir = dir
	cmd.Stdout = i.Stdout
	cmd.Stderr = i.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running yarn install in %s: %w", dir, err)
	}
	return nil
}
