package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ManuelReschke/BizDesk/internal/pkg/env"
	"github.com/ManuelReschke/BizDesk/internal/pkg/gate"
)

func checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [email]",
		Short: "Ask the entitlement query service about an email",
		Long: `Runs a one-off entitlement gate against the query endpoint and prints
the resulting snapshot. A failed query is reported separately from
"not entitled".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, _ := cmd.Flags().GetString("url")
			key, _ := cmd.Flags().GetString("key")
			timeout, _ := cmd.Flags().GetDuration("timeout")
			if url == "" {
				return errors.New("query endpoint missing: pass --url or set ENTITLEMENT_QUERY_URL")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			snap, err := runCheck(ctx, gate.NewHTTPChecker(url, key), args[0])
			if err != nil {
				return err
			}
			return printSnapshot(cmd.OutOrStdout(), snap)
		},
	}

	cmd.Flags().String("url", env.GetEnv("ENTITLEMENT_QUERY_URL", ""), "Entitlement query endpoint")
	cmd.Flags().String("key", env.GetEnv("STORE_SERVICE_KEY", ""), "Bearer key for the query endpoint")
	cmd.Flags().Duration("timeout", 15*time.Second, "Overall timeout")

	return cmd
}

func runCheck(ctx context.Context, checker gate.Checker, email string) (gate.Snapshot, error) {
	g := gate.New(checker)
	done := g.SessionEstablished(ctx, gate.Session{ID: uuid.NewString(), Email: email})
	select {
	case <-done:
		return g.Snapshot(), nil
	case <-ctx.Done():
		return gate.Snapshot{}, fmt.Errorf("check %s: %w", email, ctx.Err())
	}
}

func printSnapshot(w io.Writer, snap gate.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}
