package certbot

import (
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/letsexpose/letsexpose/pkg/common"
	"github.com/letsexpose/letsexpose/pkg/manager"
)

// Issue runs certbot for cfg and waits for it to finish. A non-zero exit
// status becomes a SUBPROCESS error carrying that status.
func Issue(ctx context.Context, runner common.CommandRunner, cfg *manager.Config, settings manager.Settings, logger common.LoggerInterface) error {
	argv := BuildCommand(cfg, settings)
	logger.Infof("Requesting a certificate for %d host(s)", len(cfg.Hosts))
	logger.Debugf("Running %v", argv)

	status, err := runner.Run(ctx, argv)
	if err != nil {
		return common.NewStorageError(err, "run certbot", argv[0])
	}
	if status != 0 && ctx.Err() != nil {
		return common.WrapError(ctx.Err(), common.ErrorTypeSubprocess, "run certbot", "certbot was interrupted")
	}
	if status != 0 {
		return common.NewSubprocessError("run certbot", "certbot", status).
			AddContext("argv", argv).
			AddSuggestion("Check the certbot output above and /var/log/letsencrypt for details")
	}

	logger.Infof("certbot finished successfully")
	return nil
}

// ExecRunner runs commands as child processes sharing this process's
// standard streams.
type ExecRunner struct{}

// Run starts argv[0] with the remaining arguments and waits for it. The exit
// status is returned without error when the program ran but failed.
func (ExecRunner) Run(ctx context.Context, argv []string) (int, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}
