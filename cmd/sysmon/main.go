// Command sysmon logs into the ShareYourSales platform, opens the live
// update channel, and prints session transitions and notifications as they
// happen. Intended for operators watching an account in real time.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/epitaphe360/shareyoursales-go/api"
	"github.com/epitaphe360/shareyoursales-go/cache"
	"github.com/epitaphe360/shareyoursales-go/credstore"
	"github.com/epitaphe360/shareyoursales-go/internal/config"
	"github.com/epitaphe360/shareyoursales-go/live"
	"github.com/epitaphe360/shareyoursales-go/notify"
	"github.com/epitaphe360/shareyoursales-go/session"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running sysmon: %s\n", err)
	}
	log.Printf("sysmon stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	email := flag.String("email", os.Getenv("SYS_EMAIL"), "account email")
	password := flag.String("password", os.Getenv("SYS_PASSWORD"), "account password")
	flag.Parse()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queryCache := cache.New(logger,
		cache.WithStaleWindow(c.GetStaleWindow()),
		cache.WithGCWindow(c.GetGCWindow()),
		cache.WithSweepInterval(c.GetSweepInterval()))
	go queryCache.Run(ctx)

	client, err := api.NewClient(c.GetAPIBaseURL(), queryCache, logger,
		api.WithHTTPClient(&http.Client{Timeout: c.GetHTTPTimeout()}))
	if err != nil {
		return err
	}

	creds, err := credentialStore(c)
	if err != nil {
		return err
	}

	store, err := session.NewStore(client, creds, logger,
		session.WithVerifyInterval(c.GetVerifyInterval()))
	if err != nil {
		return err
	}
	client.SetTokenSource(store)

	if err := establishSession(ctx, store, *email, *password); err != nil {
		return err
	}
	store.StartAutoVerify(ctx)

	notifier := notify.NewCenter(logger)
	notifier.Subscribe(func(n notify.Notification) {
		fmt.Printf("[%s] %s\n", n.Type, n.Message)
	})

	channel, err := live.NewChannel(c.GetLiveURL(), store, queryCache, notifier, logger,
		live.WithReconnectIntervals(c.GetReconnectInitialInterval(), c.GetReconnectMaxInterval()))
	if err != nil {
		return err
	}
	go channel.Run(ctx) //nolint:errcheck // exits with ctx

	unsubscribe := store.OnChange(func(status session.Status) {
		fmt.Printf("session: %s\n", status)
	})
	defer unsubscribe()

	waitForStopSignal()
	logger.Info().Msg("shutting down")
	return store.Logout(context.Background())
}

// establishSession resumes a persisted session when possible, falling back
// to a credential login.
func establishSession(ctx context.Context, store *session.Store, email, password string) error {
	ok, err := store.VerifySession(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if email == "" || password == "" {
		return errors.New("no stored session; provide -email and -password")
	}

	result, err := store.Login(ctx, email, password)
	if err != nil {
		return err
	}
	if result.TwoFactorRequired {
		fmt.Print("verification code: ")
		var code string
		if _, err := fmt.Scanln(&code); err != nil {
			return err
		}
		if _, err := store.VerifyTwoFactor(ctx, result.TempToken, code); err != nil {
			return err
		}
	}
	return nil
}

func credentialStore(c config.Config) (credstore.Store, error) {
	passphrase := c.GetCredentialPassphrase()
	if passphrase == "" {
		return credstore.NewMemory(), nil
	}
	return credstore.NewFile(c.GetCredentialFile(), passphrase)
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
