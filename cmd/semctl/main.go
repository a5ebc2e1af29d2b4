package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/richinsley/namedsem"
	"github.com/richinsley/namedsem/config"
	"github.com/richinsley/namedsem/internal/app"
	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
)

func main() {
	container := do.New()

	app.ProvideCommonDeps(container)
	app.ProvideBindingDeps(container)

	cfg, err := do.Invoke[*config.Config](container)
	if err != nil {
		log.Fatal(err)
	}

	logger, err := do.Invoke[*zerolog.Logger](container)
	if err != nil {
		log.Fatal(err)
	}

	semOpts := app.SemaphoreOptions(cfg, *logger)

	cliApp := &cli.App{
		Name:  cfg.Name,
		Usage: "create, wait on and signal POSIX named semaphores",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "serve semaphore operations to a host over stdin/stdout",
				Action: func(ctx *cli.Context) error {
					binding, err := do.Invoke[*namedsem.Binding](container)
					if err != nil {
						return fmt.Errorf("invoke binding error: %w", err)
					}

					sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					transport := namedsem.NewFrameTransport(os.Stdin, os.Stdout, cfg.Session.MaxFrameSize)
					return namedsem.NewSession(binding, transport, *logger).Serve(sigCtx)
				},
			},
			{
				Name:      "open",
				Usage:     "open a semaphore, creating it if asked, then close it again",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "create", Aliases: []string{"c"}, Usage: "create if absent (O_CREAT)"},
					&cli.BoolFlag{Name: "exclusive", Aliases: []string{"x"}, Usage: "fail if it exists (O_EXCL)"},
					&cli.IntFlag{Name: "mode", Aliases: []string{"m"}, Value: cfg.Semaphore.DefaultMode, Usage: "permission bits"},
					&cli.UintFlag{Name: "value", Aliases: []string{"v"}, Value: 0, Usage: "initial count"},
				},
				Action: func(ctx *cli.Context) error {
					name, err := nameArg(ctx, cfg)
					if err != nil {
						return err
					}

					oflag := lo.Ternary(ctx.Bool("create"), namedsem.O_CREAT, 0)
					oflag |= lo.Ternary(ctx.Bool("exclusive"), namedsem.O_EXCL, 0)

					sem, err := namedsem.Open(name, oflag, ctx.Int("mode"), uint32(ctx.Uint("value")), semOpts...)
					if err != nil {
						return err
					}
					defer sem.Close()

					fmt.Println("opened", sem.Name())
					return nil
				},
			},
			{
				Name:      "wait",
				Usage:     "decrement a semaphore, blocking until it is positive",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Usage: "give up after this long (0 waits forever)"},
				},
				Action: func(ctx *cli.Context) error {
					return withSemaphore(ctx, cfg, semOpts, func(sem *namedsem.Semaphore) error {
						waitCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
						defer stop()

						if timeout := ctx.Duration("timeout"); timeout > 0 {
							var cancel context.CancelFunc
							waitCtx, cancel = context.WithTimeout(waitCtx, timeout)
							defer cancel()
						}

						start := time.Now()
						if err := sem.WaitContext(waitCtx); err != nil {
							return err
						}
						fmt.Printf("acquired %s after %s\n", sem.Name(), time.Since(start).Round(time.Millisecond))
						return nil
					})
				},
			},
			{
				Name:      "trywait",
				Usage:     "decrement a semaphore only if that does not block",
				ArgsUsage: "NAME",
				Action: func(ctx *cli.Context) error {
					return withSemaphore(ctx, cfg, semOpts, func(sem *namedsem.Semaphore) error {
						ok, err := sem.TryWait()
						if err != nil {
							return err
						}
						if !ok {
							return cli.Exit(fmt.Sprintf("%s is not available", sem.Name()), 1)
						}
						fmt.Println("acquired", sem.Name())
						return nil
					})
				},
			},
			{
				Name:      "post",
				Usage:     "increment a semaphore",
				ArgsUsage: "NAME",
				Action: func(ctx *cli.Context) error {
					return withSemaphore(ctx, cfg, semOpts, func(sem *namedsem.Semaphore) error {
						if err := sem.Post(); err != nil {
							return err
						}
						fmt.Println("posted", sem.Name())
						return nil
					})
				},
			},
			{
				Name:      "unlink",
				Usage:     "remove a semaphore name",
				ArgsUsage: "NAME",
				Action: func(ctx *cli.Context) error {
					name, err := nameArg(ctx, cfg)
					if err != nil {
						return err
					}
					if err := namedsem.Unlink(name, semOpts...); err != nil {
						return err
					}
					fmt.Println("unlinked", name)
					return nil
				},
			},
			{
				Name:  "constants",
				Usage: "print the flag and mode constants",
				Action: func(ctx *cli.Context) error {
					constants := namedsem.Constants()
					names := lo.Keys(constants)
					sort.Strings(names)
					for _, name := range names {
						fmt.Printf("%-9s %#o\n", name, constants[name])
					}
					return nil
				},
			},
		},
	}

	runErr := cliApp.Run(os.Args)
	if err := container.Shutdown(); err != nil {
		logger.Warn().Err(err).Msg("shutdown")
	}
	if runErr != nil {
		log.Fatal(runErr)
	}
}

// withSemaphore opens an existing semaphore for the length of fn.
func withSemaphore(ctx *cli.Context, cfg *config.Config, opts []namedsem.Option, fn func(sem *namedsem.Semaphore) error) error {
	name, err := nameArg(ctx, cfg)
	if err != nil {
		return err
	}

	sem, err := namedsem.Open(name, namedsem.O_RDWR, 0, 0, opts...)
	if err != nil {
		return err
	}
	defer sem.Close()

	return fn(sem)
}

func nameArg(ctx *cli.Context, cfg *config.Config) (string, error) {
	if ctx.NArg() != 1 {
		return "", cli.Exit("exactly one semaphore NAME is required", 2)
	}
	name := ctx.Args().First()
	if !strings.HasPrefix(name, "/") {
		name = cfg.Semaphore.NamePrefix + name
	}
	return name, nil
}
