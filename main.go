package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vearne/lwsniffer/biz"
	"github.com/vearne/lwsniffer/capture"
	"github.com/vearne/lwsniffer/config"
	"github.com/vearne/lwsniffer/consts"
	"github.com/vearne/lwsniffer/metrics"
	slog "github.com/vearne/simplelog"
)

const banner string = `
   __                     _ ________         
  / /_      _______ ___  (_) __/ __/__  _____
 / /| | /| / / ___/ __ \/ / /_/ /_/ _ \/ ___/
/ / | |/ |/ (__  ) / / / / __/ __/  __/ /    
/_/  |__/|__/____/_/ /_/_/_/ /_/  \___/_/     
`

var (
	configFile string
	exitAfter  time.Duration
	version    bool
)

var rootCmd = &cobra.Command{
	Use:           "lwsniffer",
	Short:         "Passive HTTP request logger",
	Long:          "lwsniffer captures HTTP requests on the configured ports and writes one line per request to a rotated .lws file.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if version {
			printVersion()
			return nil
		}
		return load()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", config.DefaultConfigFile,
		"path of the .properties configuration file")
	rootCmd.Flags().DurationVar(&exitAfter, "exit-after", 0, "exit after specified duration")
	rootCmd.Flags().BoolVar(&version, "version", false, "print version")
}

func main() {
	fmt.Print(banner)

	adjustLogLevel()

	if err := rootCmd.Execute(); err != nil {
		slog.Error("%v", err)
		os.Exit(1)
	}
}

// startup holds what run needs from the host, so tests can swap it out.
type startup struct {
	findTargets func(name, ip string) ([]capture.Target, error)
	opener      func(settings *config.AppSettings) biz.SourceOpener
	listen      func(addr string) (net.Listener, error)
}

func hostStartup() startup {
	return startup{
		findTargets: capture.FindTargets,
		opener:      biz.PcapOpener,
		listen:      metrics.Listen,
	}
}

func load() error {
	settings, err := config.Load(configFile)
	if err != nil {
		return err
	}
	settings.ExitAfter = exitAfter
	printSettings(settings)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
	defer stop()
	return run(ctx, settings, hostStartup())
}

// run captures until ctx is done. A nil error maps to exit code 0.
func run(ctx context.Context, settings *config.AppSettings, host startup) error {
	if !settings.Sniffer.Active {
		slog.Info("sniffer is not active, nothing to do")
		return nil
	}

	targets, err := host.findTargets(settings.Server.Interface.Name, settings.Server.Interface.IP)
	if err != nil {
		return err
	}
	slog.Info("capture targets:%v", targets)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if settings.ExitAfter > 0 {
		slog.Info("Running lwsniffer for a duration of %s", settings.ExitAfter)
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, settings.ExitAfter)
		defer cancelTimeout()
	}

	m := metrics.New()
	var serveErr chan error
	if settings.Sniffer.MetricsAddress != "" {
		ln, err := host.listen(settings.Sniffer.MetricsAddress)
		if err != nil {
			return err
		}
		serveErr = make(chan error, 1)
		go func() {
			err := m.Serve(ctx, ln)
			if err != nil {
				slog.Error("metrics server:%v", err)
				cancel()
			}
			serveErr <- err
		}()
	}

	plugins, err := biz.NewPlugins(settings)
	if err != nil {
		return err
	}
	defer plugins.Close()
	slog.Info("plugins:%v", plugins)

	supervisor, err := biz.NewSupervisor(settings, targets, host.opener(settings), plugins.Outputs, m)
	if err != nil {
		return err
	}
	runErr := supervisor.Run(ctx)

	cancel()
	if serveErr != nil {
		if err := <-serveErr; err != nil {
			runErr = multierror.Append(runErr, err)
		}
	}
	if runErr != nil {
		return errors.Wrap(runErr, "capture stopped")
	}
	slog.Info("lwsniffer exit")
	return nil
}

func printVersion() {
	fmt.Println("service: lwsniffer")
	fmt.Println("Version", consts.Version)
	fmt.Println("BuildTime", consts.BuildTime)
	fmt.Println("GitTag", consts.GitTag)
}

func printSettings(settings *config.AppSettings) {
	slog.Info("component_name, %v", settings.ComponentName)
	slog.Info("server.environment, %v", settings.Server.Environment)
	slog.Info("server.host_http, %v", settings.Server.HostHTTP)
	slog.Info("server.interface, %v/%v", settings.Server.Interface.Name, settings.Server.Interface.IP)
	slog.Info("server.outputfolder, %v", settings.Server.OutputFolder)
	slog.Info("sniffer.active, %v", settings.Sniffer.Active)
	slog.Info("sniffer.ports, %v", settings.Sniffer.Ports.Sorted())
	slog.Info("sniffer.log.max_size_file, %v", settings.Sniffer.Log.MaxSizeFile)
	slog.Info("sniffer.log.verbose, %v", settings.Sniffer.Log.Verbose)
	slog.Info("sniffer.header.linkedkey, %v", settings.Sniffer.LinkedKey)
	slog.Info("sniffer.kafka.brokers, %v", settings.Sniffer.KafkaBrokers)
	slog.Info("sniffer.metrics.address, %v", settings.Sniffer.MetricsAddress)
}

func adjustLogLevel() {
	logLevel := os.Getenv("SIMPLE_LOG_LEVEL")
	if len(logLevel) > 0 {
		return
	}
	slog.SetLevel(slog.InfoLevel)
}
