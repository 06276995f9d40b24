package util

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 40)
	wrapped := WrapString(text)

	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > Wrap {
			t.Errorf("line exceeds %d characters: %q", Wrap, line)
		}
	}
	if got := strings.Join(strings.Fields(wrapped), " "); got != strings.TrimSpace(text) {
		t.Errorf("words changed by wrapping: %q", got)
	}

	if WrapString("") != "" {
		t.Errorf("expected empty string to stay empty")
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a, b,,c ", []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		got := splitList(tt.in)
		if strings.Join(got, "|") != strings.Join(tt.want, "|") {
			t.Errorf("splitList(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClientConfigFromFlags(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupRPCClientFlags(cmd, 100)
	if err := cmd.PersistentFlags().Parse([]string{
		"--transport-endpoints", "/tmp/a.sock,/tmp/b.sock",
		"--service", "300",
		"--transport-retries", "5",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("bind flags: %v", err)
	}

	conf := GetClientConfig()
	if len(conf.Endpoints) != 2 || conf.Endpoints[1] != "/tmp/b.sock" {
		t.Errorf("unexpected endpoints %v", conf.Endpoints)
	}
	if conf.RetryCount != 5 {
		t.Errorf("expected 5 retries, got %d", conf.RetryCount)
	}
	if conf.TimeoutSecond != 10 {
		t.Errorf("expected default timeout 10, got %d", conf.TimeoutSecond)
	}
	if GetServiceID() != 300 {
		t.Errorf("expected service 300, got %d", GetServiceID())
	}
}

func TestBackendOptionsFromFlags(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := &cobra.Command{Use: "test"}
	SetupBackendFlags(cmd)
	if err := cmd.PersistentFlags().Parse([]string{
		"--command-enable", "xset dpms force off",
		"--command-timeout", "2s",
		"--multi-members", "command,screensaver",
		"--multi-optional", "backlight",
		"--overlay-endpoints", "localhost:9000",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		t.Fatalf("bind flags: %v", err)
	}

	opts := GetBackendOptions()
	if opts.EnableCommand != "xset dpms force off" {
		t.Errorf("unexpected enable command %q", opts.EnableCommand)
	}
	if opts.CommandTimeout != 2*time.Second {
		t.Errorf("unexpected command timeout %s", opts.CommandTimeout)
	}
	if opts.Shell != "/bin/sh" {
		t.Errorf("expected default shell, got %q", opts.Shell)
	}
	if len(opts.Members) != 2 || opts.Members[0] != "command" {
		t.Errorf("unexpected members %v", opts.Members)
	}
	if len(opts.OptionalMembers) != 1 || opts.OptionalMembers[0] != "backlight" {
		t.Errorf("unexpected optional members %v", opts.OptionalMembers)
	}
	if len(opts.OverlayClient.Endpoints) != 1 || opts.OverlayClient.Endpoints[0] != "localhost:9000" {
		t.Errorf("unexpected overlay endpoints %v", opts.OverlayClient.Endpoints)
	}
	if opts.OverlayServiceID != 200 {
		t.Errorf("expected default overlay service 200, got %d", opts.OverlayServiceID)
	}
}
