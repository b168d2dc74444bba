// Package server exposes the supersh REPL over SSH: one shell per session,
// wired to the session's stdio.
package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/gliderlabs/ssh"
	"github.com/juju/ratelimit"
	gossh "golang.org/x/crypto/ssh"

	"github.com/supersh-sh/supersh/core/config"
	"github.com/supersh-sh/supersh/core/logger"
	"github.com/supersh-sh/supersh/core/shell"
)

// Server runs the SSH front end.
type Server struct {
	cfg        *config.Configuration
	log        *logger.Logger
	sshServer  *ssh.Server
	authBucket *ratelimit.Bucket
}

// New builds a Server from the configuration. Events go to lg; nil disables
// event logging.
func New(cfg *config.Configuration, lg *logger.Logger) (*Server, error) {
	if lg == nil {
		lg = logger.NewNopLogger()
	}
	s := &Server{cfg: cfg, log: lg}

	if cfg.MaxAuthPerMinute > 0 {
		rate := float64(cfg.MaxAuthPerMinute) / 60
		s.authBucket = ratelimit.NewBucketWithRate(rate, int64(cfg.MaxAuthPerMinute))
	}

	s.sshServer = &ssh.Server{
		Addr: fmt.Sprintf(":%d", cfg.SSHPort),
		Handler: func(sess ssh.Session) {
			s.handleSession(sess)
		},
		PasswordHandler: s.passwordOK,
	}
	if cfg.SSHBanner != "" {
		s.sshServer.ServerConfigCallback = func(ctx ssh.Context) *gossh.ServerConfig {
			conf := &gossh.ServerConfig{}
			conf.BannerCallback = func(conn gossh.ConnMetadata) string { return cfg.SSHBanner }
			return conf
		}
	}

	keyPem, err := cfg.PrivateKeyPem()
	if err != nil {
		return nil, fmt.Errorf("reading host key: %w", err)
	}
	signer, err := gossh.ParsePrivateKey(keyPem)
	if err != nil {
		return nil, fmt.Errorf("parsing host key: %w", err)
	}
	s.sshServer.AddHostKey(signer)

	return s, nil
}

// passwordOK decides one authentication attempt.
func (s *Server) passwordOK(ctx ssh.Context, password string) bool {
	ok := s.allow(ctx.User(), password)

	s.log.Sessionless().Record(logger.Event{Type: "login_attempt", LoginAttempt: &logger.LoginAttempt{
		Success:    ok,
		Username:   ctx.User(),
		Password:   password,
		RemoteAddr: fmt.Sprintf("%s", ctx.RemoteAddr()),
	}})
	return ok
}

// allow checks credentials, throttled by the token bucket so a flood of
// attempts cannot spin the server.
func (s *Server) allow(user, password string) bool {
	if s.authBucket != nil && s.authBucket.TakeAvailable(1) == 0 {
		return false
	}

	ok := s.cfg.AllowAnyPassword
	for _, candidate := range s.cfg.GetPasswords(user) {
		if subtle.ConstantTimeCompare([]byte(password), []byte(candidate)) == 1 {
			ok = true
		}
	}
	return ok
}

// termWidth publishes the client terminal width from the winch goroutine to
// readline's width callback.
type termWidth struct{ v atomic.Int64 }

func (t *termWidth) Set(n int) { t.v.Store(int64(n)) }
func (t *termWidth) Get() int  { return int(t.v.Load()) }

func (s *Server) handleSession(sess ssh.Session) {
	sessionLog := s.log.NewSession()
	sessionLog.Record(logger.Event{Type: "session_start", SessionStart: &logger.SessionStart{
		User:       sess.User(),
		RemoteAddr: fmt.Sprintf("%s", sess.RemoteAddr()),
	}})

	ptyInfo, winch, isPty := sess.Pty()
	var width termWidth
	width.Set(ptyInfo.Window.Width)
	go func() {
		for window := range winch {
			width.Set(window.Width)
		}
	}()

	sh, err := shell.NewShell(shell.Options{
		Stdin:      sess,
		Stdout:     sess,
		Stderr:     sess.Stderr(),
		IsTerminal: isPty,
		TermWidth:  width.Get,
		History:    shell.NewHistory(s.cfg.HistorySize),
		Log:        sessionLog,
		Motd:       s.cfg.Motd,
	})
	if err != nil {
		fmt.Fprintf(sess.Stderr(), "supersh: %v\n", err)
		sess.Exit(1)
		return
	}
	defer sh.Close()

	if err := sh.Run(); err != nil && err != io.EOF {
		log.Printf("session %s: %v", sessionLog.SessionID(), err)
		sess.Exit(1)
		return
	}
	sess.Exit(0)
}

// ListenAndServe starts accepting connections.
func (s *Server) ListenAndServe() error {
	log.Printf("- Starting SSH server on %s\n", s.sshServer.Addr)
	return s.sshServer.ListenAndServe()
}

// Shutdown stops the server, waiting for active sessions up to the context
// deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.sshServer.Shutdown(ctx)
}
