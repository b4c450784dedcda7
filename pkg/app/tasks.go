package app

import (
	"context"
	"time"

	"github.com/letsexpose/letsexpose/pkg/certbot"
	"github.com/letsexpose/letsexpose/pkg/common"
	"github.com/letsexpose/letsexpose/pkg/manager"
	"github.com/letsexpose/letsexpose/pkg/nginx"
)

// Tasks lists the task names accepted on the command line
var Tasks = []string{manager.TaskCertbotInit, manager.TaskUpdateNginx}

// IsTask reports whether name is one of Tasks
func IsTask(name string) bool {
	for _, task := range Tasks {
		if task == name {
			return true
		}
	}
	return false
}

// TaskRunner executes the tasks against one validated configuration
type TaskRunner struct {
	config   *manager.Config
	settings manager.Settings
	logger   common.LoggerInterface
	runner   common.CommandRunner
	store    *certbot.CertificateStore
	now      func() time.Time
}

// NewTaskRunner creates a task runner. runner executes certbot.
func NewTaskRunner(cfg *manager.Config, settings manager.Settings, logger common.LoggerInterface, runner common.CommandRunner) *TaskRunner {
	return &TaskRunner{
		config:   cfg,
		settings: settings,
		logger:   logger,
		runner:   runner,
		store:    certbot.NewCertificateStore(settings.LiveDir),
		now:      time.Now,
	}
}

// Run dispatches to the named task
func (tr *TaskRunner) Run(ctx context.Context, task string) error {
	switch task {
	case manager.TaskCertbotInit:
		return tr.CertbotInit(ctx)
	case manager.TaskUpdateNginx:
		_, err := tr.UpdateNginx()
		return err
	default:
		return common.NewConfigError("select task", "unknown task "+task)
	}
}

// CertbotInit requests one certificate covering every configured host
func (tr *TaskRunner) CertbotInit(ctx context.Context) error {
	return certbot.Issue(ctx, tr.runner, tr.config, tr.settings, tr.logger)
}

// UpdateNginx regenerates the nginx config for the hosts with a certificate
// and warns about certificates that are about to expire or do not match.
func (tr *TaskRunner) UpdateNginx() (*nginx.UpdateReport, error) {
	updater := nginx.NewUpdater(tr.settings, tr.store, tr.logger)
	report, err := updater.Update(tr.config)
	if err != nil {
		return report, err
	}

	for _, host := range report.Rendered {
		for _, warning := range tr.store.Warnings(host, tr.now(), tr.settings.RenewalWarnDays) {
			tr.logger.Warnf("%s", warning)
		}
	}

	if len(report.Rendered) == 0 {
		tr.logger.Infof("Nothing to activate, %s left untouched", tr.settings.NginxConf)
	} else {
		tr.logger.Infof("Activated %d of %d host(s)", len(report.Rendered), len(tr.config.Hosts))
	}
	return report, nil
}
