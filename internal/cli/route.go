package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/skillgate/skillgate/internal/embedding"
	"github.com/skillgate/skillgate/internal/model"
	"github.com/skillgate/skillgate/internal/router"
)

func routeCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Read {prompt, sessionId?} from stdin and print the router's activation decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoute(cmd, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit {mode, requiredSkills, topScore, processingTimeMs} as JSON")
	return cmd
}

type routeStdin struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId,omitempty"`
}

type routeJSONOutput struct {
	Mode             string   `json:"mode"`
	RequiredSkills   []string `json:"requiredSkills"`
	TopScore         float64  `json:"topScore"`
	ProcessingTimeMs int64    `json:"processingTimeMs"`
	Activated        bool     `json:"activated"`
	ActivationReason string   `json:"activationReason,omitempty"`
	SessionID        string   `json:"sessionId,omitempty"`
}

func runRoute(cmd *cobra.Command, asJSON bool) error {
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: read stdin: %v\n", err)
		return err
	}
	var input routeStdin
	if err := json.Unmarshal(raw, &input); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: invalid stdin JSON: %v\n", err)
		return err
	}

	vectorStorePath := os.Getenv("VECTOR_STORE")
	if vectorStorePath == "" {
		fmt.Fprintln(cmd.ErrOrStderr(), "route: VECTOR_STORE must name a vector-store artifact")
		return fmt.Errorf("VECTOR_STORE not set")
	}
	f, err := os.Open(vectorStorePath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: open vector store: %v\n", err)
		return err
	}
	defer f.Close()
	store, err := router.LoadStore(f)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: %v\n", err)
		return err
	}

	thresholds := router.DefaultThresholds()
	if v := os.Getenv("IMMEDIATE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			thresholds.Immediate = f
		}
	}
	if v := os.Getenv("SUGGESTION_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			thresholds.Suggestion = f
		}
	}

	r, err := router.New(router.Options{
		Embedder:   embedding.NewHashFallback(0),
		Thresholds: thresholds,
	})
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: %v\n", err)
		return err
	}
	if err := r.Initialize(store); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: %v\n", err)
		return err
	}

	result, err := r.Route(cmd.Context(), input.Prompt)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: %v\n", err)
		return err
	}

	var required []string
	var topScore float64
	if len(result.Candidates) > 0 {
		topScore = result.Candidates[0].Score
		for _, c := range result.Candidates {
			if c.Score >= thresholds.Suggestion {
				required = append(required, c.SkillName)
			}
		}
	}

	decision := model.RouteDecision{
		RequestID:        uuid.NewString(),
		Query:            input.Prompt,
		Mode:             result.Mode,
		Candidates:       result.Candidates,
		Signals:          result.Signals,
		SessionID:        input.SessionID,
		DecidedAt:        time.Now().UTC(),
		ProcessingTimeMs: result.ProcessingTimeMs,
	}

	app, err := newApp(skillsPath, profilesPath, workspace)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: %v\n", err)
		return err
	}
	outcome, err := app.activator.ActivateFromDecision(cmd.Context(), decision)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "route: activate: %v\n", err)
		return err
	}

	if asJSON {
		out, err := json.Marshal(routeJSONOutput{
			Mode:             string(result.Mode),
			RequiredSkills:   required,
			TopScore:         topScore,
			ProcessingTimeMs: result.ProcessingTimeMs,
			Activated:        outcome.Activated,
			ActivationReason: outcome.Reason,
			SessionID:        outcome.State.SessionID,
		})
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "route: encode: %v\n", err)
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "mode: %s\ntop score: %.3f\nskills: %v\nactivated: %v\n",
		result.Mode, topScore, required, outcome.Activated)
	return nil
}
