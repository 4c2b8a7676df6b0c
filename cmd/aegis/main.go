// Package main runs the Aegis copilot server: a WebSocket surface that
// takes voice transcripts and drives a safety-gated browser session for
// users who cannot vet pages themselves.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/entrhq/aegis/pkg/browser"
	"github.com/entrhq/aegis/pkg/config"
	"github.com/entrhq/aegis/pkg/confirm"
	"github.com/entrhq/aegis/pkg/llm"
	"github.com/entrhq/aegis/pkg/llm/openai"
	"github.com/entrhq/aegis/pkg/logging"
	"github.com/entrhq/aegis/pkg/loop"
	"github.com/entrhq/aegis/pkg/oracle"
	"github.com/entrhq/aegis/pkg/risk"
	"github.com/entrhq/aegis/pkg/server"
	"github.com/entrhq/aegis/pkg/session"
	"github.com/entrhq/aegis/pkg/verify"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "aegis: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger, logErr := logging.NewLogger("main")
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "file logging unavailable: %v\n", logErr)
	}
	defer logger.Close()

	settings := config.Load()
	policy, err := config.LoadPolicy(settings.PolicyPath)
	if err != nil {
		return err
	}
	logger.Infof("starting: port=%d model=%v browser=%v oracle=%v fail_closed=%v",
		settings.AppPort, settings.EnableModel, settings.EnableBrowser, settings.EnableOracle, policy.FailClosed)

	domainOracle, err := buildOracle(settings, policy, logger)
	if err != nil {
		return err
	}

	var planner llm.Planner
	var assessor risk.Assessor
	if settings.EnableModel {
		deepProvider, err := openai.NewProvider(settings.OpenAIAPIKey, openai.WithModel(settings.ModelName))
		if err != nil {
			return fmt.Errorf("failed to configure model provider: %w", err)
		}
		fastProvider, err := openai.NewProvider(settings.OpenAIAPIKey, openai.WithModel(settings.FastModelName))
		if err != nil {
			return fmt.Errorf("failed to configure fast model provider: %w", err)
		}
		planner = llm.NewModelPlanner(deepProvider)
		assessor = llm.NewModelAssessor(fastProvider, deepProvider)
	} else {
		logger.Infof("model disabled; running on deterministic fallbacks")
	}

	factory := func(sink loop.EventSink) (server.Conversation, func(), error) {
		browserCtrl, cleanup, err := buildBrowser(settings, logger)
		if err != nil {
			return nil, nil, err
		}

		sess := session.New(session.WithSafeDomains(policy.SafePaymentDomains))
		gate := confirm.NewGate(
			confirm.WithRepromptLimit(policy.RepromptLimit),
			confirm.WithExpiry(policy.ConfirmationExpiry()),
		)
		classifier := risk.NewClassifier(assessor,
			risk.WithFastTimeout(settings.FastRiskTimeout),
			risk.WithDeepTimeout(settings.DeepRiskTimeout),
		)
		overlay := verify.NewOverlay(domainOracle, verify.WithTimeout(settings.OracleTimeout))

		ctrl := loop.NewController(sess, gate, classifier, overlay, browserCtrl, sink,
			loop.WithPlanner(planner),
			loop.WithLogger(logger),
			loop.WithFailClosed(policy.FailClosed),
			loop.WithPlanTimeout(settings.PlanTimeout),
		)
		logger.Infof("conversation started: session=%s", sess.ID())
		return ctrl, cleanup, nil
	}

	srv := server.New(factory,
		server.WithLogger(logger),
		server.WithAllowOrigins(settings.AllowOrigins),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", settings.AppHost, settings.AppPort)
	return srv.ListenAndServe(ctx, addr)
}

// buildOracle picks the verification oracle: the search-backed client when
// enabled and keyed, otherwise the static registry from the safety policy.
func buildOracle(settings *config.Settings, policy *config.SafetyPolicy, logger *logging.Logger) (verify.Oracle, error) {
	if settings.EnableOracle && settings.OracleAPIKey != "" {
		client, err := oracle.NewClient(settings.OracleAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to configure domain oracle: %w", err)
		}
		logger.Infof("domain oracle: search-backed")
		return client, nil
	}
	logger.Infof("domain oracle: static registry (%d services)", len(policy.Services))
	return oracle.NewStatic(policy.Services), nil
}

// buildBrowser starts a browser controller for one conversation.
func buildBrowser(settings *config.Settings, logger *logging.Logger) (browser.Controller, func(), error) {
	if !settings.EnableBrowser {
		stub := browser.NewStubController()
		_ = stub.Start(context.Background())
		return stub, func() {}, nil
	}

	ctrl := browser.NewPlaywrightController(browser.WithHeadless(settings.Headless))
	if err := ctrl.Start(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("failed to start browser: %w", err)
	}
	cleanup := func() {
		if err := ctrl.Shutdown(context.Background()); err != nil {
			logger.Warnf("browser shutdown failed: %v", err)
		}
	}
	return ctrl, cleanup, nil
}
