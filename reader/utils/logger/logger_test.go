package logger

import (
	"bytes"
	"fmt"
	"log/syslog"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"
)

type lockedBuffer struct {
	mtx sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	return b.buf.Write(p)
}

func TestLoggerRaceCond(t *testing.T) {
	out := &lockedBuffer{}
	Logger.SetOutput(out)
	Logger.SetFormatter(&logrus.JSONFormatter{})
	Logger.SetLevel(logrus.InfoLevel)
	g := errgroup.Group{}
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			for j := 0; j < 1000; j++ {
				WithFields(LogInfo{"query": "severity = error", "cursor": j}).Info("suggest", fmt.Errorf("aaaa"))
			}
			return nil
		})
	}
	assert.NoError(t, g.Wait())
	assert.Equal(t, 10*1000, bytes.Count(out.buf.Bytes(), []byte("\n")))
}

func TestSetLoggerLevel(t *testing.T) {
	SetLoggerLevel("debug")
	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())
	SetLoggerLevel("chatty")
	assert.Equal(t, logrus.ErrorLevel, Logger.GetLevel())
}

func TestSyslogPriority(t *testing.T) {
	assert.Equal(t, syslog.LOG_ERR, syslogPriority("LOG_ERR"))
	assert.Equal(t, syslog.LOG_WARNING, syslogPriority("warning"))
	assert.Equal(t, syslog.LOG_INFO, syslogPriority(""))
}
