// Kiosk drives the public check-in flow from standard input, one line per
// employee: "<employee_id> <image_path>". It refuses to start outside the
// office network.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"attendance-portal/internal/apiclient"
	"attendance-portal/internal/apperror"
	"attendance-portal/internal/checkin"
	"attendance-portal/internal/config"
	"attendance-portal/internal/network"
)

func main() {
	cfg := config.Load()
	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := apiclient.New(cfg.BackendURL, cfg.BackendTimeout, logger)
	monitor := network.NewMonitor(api, cfg.NetworkPollInterval, cfg.NetworkIdleTTL, logger)

	snap, err := monitor.Refresh(ctx, "")
	if err != nil {
		logger.Fatal("network check failed", zap.Error(err))
	}
	if !snap.Internal() {
		logger.Fatal("check-in is only available from the internal network", zap.String("client_ip", snap.Info.ClientIP))
	}
	logger.Info("kiosk ready", zap.String("client_ip", snap.Info.ClientIP), zap.String("backend", cfg.BackendURL))

	k := &kiosk{api: api, maxWidth: cfg.FrameMaxWidth, out: os.Stdout, logger: logger}
	if err := k.run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("kiosk stopped", zap.Error(err))
	}
}

type kiosk struct {
	api      checkin.Submitter
	maxWidth int
	out      io.Writer
	logger   *zap.Logger
	flow     checkin.Flow
}

func (k *kiosk) run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		employeeID, path, ok := strings.Cut(line, " ")
		if !ok {
			fmt.Fprintln(k.out, "usage: <employee_id> <image_path>")
			continue
		}
		k.handle(ctx, employeeID, strings.TrimSpace(path))
	}
	return sc.Err()
}

// handle runs one employee through capture, confirm and result, then resets
// the flow for the next one.
func (k *kiosk) handle(ctx context.Context, employeeID, path string) {
	defer k.flow.Reset()

	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(k.out, "%s: cannot read %s: %v\n", employeeID, path, err)
		return
	}
	frame, err := checkin.Normalize(raw, k.maxWidth)
	if err == nil {
		err = k.flow.Capture(frame)
	}
	if err != nil {
		fmt.Fprintf(k.out, "%s: %s\n", employeeID, apperror.Message(err, "invalid image"))
		return
	}
	k.flow.EmployeeID = employeeID

	err = k.flow.Confirm(ctx, k.api, func() {
		fmt.Fprintf(k.out, "%s: verifying liveness...\n", employeeID)
	})
	if err != nil {
		k.logger.Debug("check-in rejected", zap.String("employee_id", employeeID), zap.Error(err))
		fmt.Fprintf(k.out, "%s: %s\n", employeeID, k.flow.Error)
		return
	}

	res := k.flow.Result
	action := "checked in"
	if res.CheckedOut() {
		action = "checked out"
	}
	fmt.Fprintf(k.out, "%s: %s %s at %s (confidence %.1f%%)\n",
		employeeID, res.FullName, action, res.At.Format("15:04:05"), res.Confidence*100)
}
