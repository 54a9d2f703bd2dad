package cmd

import (
	"context"
	"errors"
	"testing"

	coreconfig "github.com/m3rciful/replybot/core/config"
	"github.com/m3rciful/replybot/core/dispatch"
	coretelegram "github.com/m3rciful/replybot/core/telegram"
)

func TestRunWiresLifecycleHooks(t *testing.T) {
	t.Setenv("REPLYBOT_TEST_CONFIG", "/tmp/replybot.yaml")

	var loadedPath string
	var started, stopped, shutdown bool
	cfg := &coreconfig.Config{}
	reg := dispatch.NewRegistry()

	err := Run(Options{
		ConfigEnvVar: "REPLYBOT_TEST_CONFIG",
		LoadConfig: func(path string) (*coreconfig.Config, error) {
			loadedPath = path
			return cfg, nil
		},
		Bootstrap: func(got *coreconfig.Config) (coretelegram.RunOptions, error) {
			if got != cfg {
				t.Fatal("bootstrap received a different config")
			}
			return coretelegram.RunOptions{
				Config:   got,
				Registry: reg,
				OnStop: func(context.Context, coretelegram.Runtime) error {
					stopped = true
					return nil
				},
			}, nil
		},
		ShutdownLogger: func() error { shutdown = true; return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			if err := opts.OnStart(ctx, coretelegram.Runtime{}); err != nil {
				return err
			}
			started = true
			return opts.OnStop(ctx, coretelegram.Runtime{})
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if loadedPath != "/tmp/replybot.yaml" {
		t.Fatalf("config path = %q", loadedPath)
	}
	if !started || !stopped || !shutdown {
		t.Fatalf("lifecycle incomplete: started=%v stopped=%v shutdown=%v", started, stopped, shutdown)
	}
}

func TestRunAllowsMissingConfigPath(t *testing.T) {
	t.Setenv("REPLYBOT_TEST_CONFIG", "")
	var loadedPath = "unset"
	err := Run(Options{
		ConfigEnvVar: "REPLYBOT_TEST_CONFIG",
		LoadConfig: func(path string) (*coreconfig.Config, error) {
			loadedPath = path
			return nil, errors.New("stop here")
		},
	})
	if err == nil {
		t.Fatal("expected load error")
	}
	if loadedPath != "" {
		t.Fatalf("config path = %q, want empty", loadedPath)
	}
}

func TestRunStopsOnBootstrapError(t *testing.T) {
	boom := errors.New("boom")
	ran := false
	err := Run(Options{
		LoadConfig: func(string) (*coreconfig.Config, error) { return &coreconfig.Config{}, nil },
		Bootstrap: func(*coreconfig.Config) (coretelegram.RunOptions, error) {
			return coretelegram.RunOptions{}, boom
		},
		RunTelegram: func(context.Context, coretelegram.RunOptions) error { ran = true; return nil },
	})
	if !errors.Is(err, boom) || ran {
		t.Fatalf("err = %v ran = %v", err, ran)
	}
}

func TestSinkFailures(t *testing.T) {
	sink := dispatch.NewLogSink()
	sink.Report(context.Background(), errors.New("x"))
	if sinkFailures(sink) != 1 {
		t.Fatal("expected one failure")
	}
	if sinkFailures(dispatch.SinkFunc(func(context.Context, error) {})) != 0 {
		t.Fatal("custom sinks report zero")
	}
}
