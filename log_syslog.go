//go:build linux
// +build linux

package bluez

import (
	"log/syslog"

	"github.com/pkg/errors"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
)

// LogToSyslog copies every entry of the default logger to the local
// syslog daemon under the daemon facility.
func LogToSyslog(tag string) error {
	l, err := rootLogger()
	if err != nil {
		return err
	}
	hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_INFO|syslog.LOG_DAEMON, tag)
	if err != nil {
		return errors.Wrap(err, "can't connect to syslog")
	}
	l.AddHook(hook)
	return nil
}
