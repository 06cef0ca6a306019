package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/ciphersafe/internal/client/auth"
	"github.com/dmitrijs2005/ciphersafe/internal/client/client"
	"github.com/dmitrijs2005/ciphersafe/internal/client/config"
	"github.com/dmitrijs2005/ciphersafe/internal/client/items"
	"github.com/dmitrijs2005/ciphersafe/internal/client/notify"
	"github.com/dmitrijs2005/ciphersafe/internal/client/otp"
	"github.com/dmitrijs2005/ciphersafe/internal/client/repositories"
	"github.com/dmitrijs2005/ciphersafe/internal/client/services"
	"github.com/dmitrijs2005/ciphersafe/internal/client/session"
	"github.com/dmitrijs2005/ciphersafe/internal/filex"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
	"github.com/dmitrijs2005/ciphersafe/internal/redact"
)

// Area is the part of the client the REPL currently shows.
type Area string

const (
	AreaChecking  Area = "checking"
	AreaAuth      Area = "auth"
	AreaProtected Area = "protected"
)

type App struct {
	config *config.Config
	api    client.Client
	prefs  services.Preferences
	store  io.Closer
	notify notify.Notifier
	log    logging.Logger
	out    io.Writer
	reader *bufio.Reader

	provider *session.Provider
	gate     *session.Gate
	items    *items.Service

	machine  *auth.Machine
	flow     *auth.Flow
	otp      *otp.Controller
	otpEmail string
	// resendHinted is set once the resend notice for the current cooldown
	// was printed.
	resendHinted bool

	area Area
}

// NewApp opens the local preferences database and the backend client.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	log := logging.New(os.Stderr, c.LogLevel)

	dbPath, err := filex.EnsureParentDir(c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error preparing database directory", "error", err)
		return nil, err
	}

	db, err := repositories.InitDatabase(ctx, dbPath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	api, err := client.NewHTTPClient(c.ServerBaseURL, c.RequestTimeout, log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return newApp(c, api, services.NewPreferences(db), db, os.Stdin, os.Stdout, log), nil
}

func newApp(c *config.Config, api client.Client, prefs services.Preferences, store io.Closer, in io.Reader, out io.Writer, log logging.Logger) *App {
	a := &App{
		config: c,
		api:    api,
		prefs:  prefs,
		store:  store,
		notify: notify.NewConsole(out),
		log:    log,
		out:    out,
		reader: bufio.NewReader(in),
		area:   AreaChecking,
	}
	a.provider = session.NewProvider(api, a, log)
	a.items = items.NewService(api, a.notify, log)
	a.resetAuth()
	return a
}

// Run checks the session and serves the REPL until the user exits.
func (a *App) Run(ctx context.Context) {
	defer a.Close()
	printlnFn("Welcome to CipherSafe CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

// Close stops the OTP countdown and releases the backend client and the
// local database.
func (a *App) Close() {
	a.closeOTP()
	if err := a.api.Close(); err != nil {
		a.log.Warn(context.Background(), "closing client", "error", err)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn(context.Background(), "closing database", "error", err)
		}
	}
}

func (a *App) getStatus() string {
	switch a.area {
	case AreaProtected:
		if s, ok := a.provider.Session(); ok {
			return fmt.Sprintf("(%s)", s.Username)
		}
		return ""
	case AreaAuth:
		return fmt.Sprintf("(%s)", a.machine.Step().Name())
	default:
		return ""
	}
}

func (a *App) isLoggedIn() bool {
	return a.area == AreaProtected && a.gate != nil && a.gate.State() == session.StateAuthenticated
}

func (a *App) authStep() auth.Step { return a.machine.Step() }

// settle activates a fresh session gate whenever the protected area was
// requested. The protected area is entered only through an authenticated
// gate.
func (a *App) settle(ctx context.Context) {
	a.announceResend()
	if a.area != AreaChecking {
		return
	}
	g := session.NewGate(a.provider)
	a.gate = g

	_ = notify.WithSpinner(a.out, "Checking session", func() error {
		g.Activate(ctx)
		return nil
	})
	g.Render(
		func() { fmt.Fprintln(a.out, "Checking session...") },
		func() {
			a.area = AreaProtected
			s, _ := a.provider.Session()
			a.notify.Success("Signed in as " + notify.Highlight.Sprint(s.Username))
		},
	)
}

// ToLogin implements session.Navigator.
func (a *App) ToLogin() {
	a.area = AreaAuth
	a.items.Reset()
	a.resetAuth()
}

// ToProtected implements session.Navigator. The gate runs again before
// any protected command is served.
func (a *App) ToProtected() {
	a.area = AreaChecking
	a.gate = nil
}

// resetAuth starts the auth flow over at the Login step.
func (a *App) resetAuth() {
	a.closeOTP()
	a.machine = auth.NewMachine(a.log, a.authCompleted)
	a.machine.Subscribe(a.stepChanged)
	a.flow = auth.NewFlow(a.machine, a.api, a.notify, a.log)
}

func (a *App) stepChanged(step auth.Step) {
	a.closeOTP()
	s, ok := step.(auth.OtpStep)
	if !ok {
		return
	}

	c := otp.New(s, a.machine.Epoch(), a.machine, a.api, a.notify, a.log, otp.Options{
		InitialCooldown: a.config.OTPInitialCooldown,
		ResendCooldown:  a.config.OTPResendCooldown,
	})
	c.Start()
	a.otp = c
	a.otpEmail = s.Email()
}

// announceResend prints the resend notice once per cooldown. It runs on the
// REPL goroutine before each prompt so it never interleaves with other output.
func (a *App) announceResend() {
	if a.otp == nil {
		return
	}
	if !a.otp.Window().ResendEnabled {
		a.resendHinted = false
		return
	}
	if !a.resendHinted {
		a.resendHinted = true
		a.notify.Info("You can request a new code with 'resend'")
	}
}

func (a *App) closeOTP() {
	a.resendHinted = false
	if a.otp != nil {
		a.otp.Close()
		a.otp = nil
	}
}

// authCompleted runs once the passcode was accepted.
func (a *App) authCompleted() {
	ctx := context.Background()
	if a.otpEmail != "" {
		if err := a.prefs.RememberLogin(ctx, a.otpEmail); err != nil {
			a.log.Warn(ctx, "could not remember login", "email", redact.Email(a.otpEmail), "error", err)
		}
	}
	a.ToProtected()
}

// report surfaces errors that no component has notified yet.
func (a *App) report(err error) {
	var apiErr *client.APIError
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
	case errors.As(err, &apiErr),
		errors.Is(err, client.ErrValidation),
		errors.Is(err, client.ErrUnavailable),
		errors.Is(err, client.ErrDisclosure):
	case errors.Is(err, auth.ErrInvalidTransition):
		a.notify.Error("Not available on this screen, type 'help'")
	case errors.Is(err, auth.ErrStale), errors.Is(err, auth.ErrExited), errors.Is(err, otp.ErrClosed):
		a.log.Debug(context.Background(), "outdated action ignored", "error", err)
	default:
		a.notify.Error(err.Error())
	}
}
