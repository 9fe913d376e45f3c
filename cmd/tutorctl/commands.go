package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	apihttp "github.com/PandyaSumit/mini--AI-tutor-sub008/internal/http"
	"github.com/PandyaSumit/mini--AI-tutor-sub008/internal/tutor"
)

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check tutord server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp apihttp.HealthResponse
			if err := opts.client().do(cmd.Context(), http.MethodGet, "/health", nil, &resp); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Server Status: %s\n", resp.Status)
			fmt.Fprintf(w, "Server URL: %s\n", opts.server)
			if resp.Version != "" {
				fmt.Fprintf(w, "Version: %s\n", resp.Version)
			}
			for _, name := range slices.Sorted(maps.Keys(resp.Services)) {
				fmt.Fprintf(w, "  %-12s %s\n", name, resp.Services[name])
			}
			return nil
		},
	}
}

func newClassifyCmd(opts *options) *cobra.Command {
	var req apihttp.ClassifyRequest
	cmd := &cobra.Command{
		Use:   "classify <query>",
		Short: "Route a query to a response mode",
		Example: `  tutorctl classify "what does chapter 3 say about recursion?"
  tutorctl classify --semantic "explain closures"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Query = strings.Join(args, " ")
			var resp apihttp.ClassifyResponse
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/classify", req, &resp); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Mode:       %s\n", resp.Mode)
			fmt.Fprintf(w, "Confidence: %.2f\n", resp.Confidence)
			fmt.Fprintf(w, "Method:     %s\n", resp.Method)
			if resp.Rationale != "" {
				fmt.Fprintf(w, "Rationale:  %s\n", resp.Rationale)
			}
			if resp.Fallback {
				fmt.Fprintf(w, "Fallback:   %s\n", resp.FallbackReason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&req.Semantic, "semantic", false, "always run the semantic stage")
	cmd.Flags().BoolVar(&req.KnowledgeCheck, "knowledge-check", false, "confirm retrieval against the course index")
	cmd.Flags().StringVar(&req.ForceMode, "force", "", "force a mode")
	cmd.Flags().StringSliceVar(&req.History, "history", nil, "previous messages, oldest first")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var req apihttp.SearchRequest
	cmd := &cobra.Command{
		Use:   "search <collection> <query>",
		Short: "Search a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Query = strings.Join(args[1:], " ")
			var resp apihttp.SearchResponse
			path := "/api/v1/collections/" + url.PathEscape(args[0]) + "/search"
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, req, &resp); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(resp.Results) == 0 {
				fmt.Fprintln(w, "No results.")
				return nil
			}
			for i, r := range resp.Results {
				fmt.Fprintf(w, "%d. [%.3f] %s\n", i+1, r.Score, r.ID)
				fmt.Fprintf(w, "   %s\n", preview(r.Content, 160))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&req.TopK, "top-k", "k", 5, "number of results")
	cmd.Flags().Float32Var(&req.MinScore, "min-score", 0, "minimum similarity score")
	return cmd
}

func newIngestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <collection> <file>",
		Short: "Add documents to a collection",
		Long: `Add documents from a file to a collection.

A .json file must hold an array of {"id", "content", "metadata"} objects.
Any other file is split on blank lines and each paragraph becomes one
document with "source" and "chunk" metadata. Use - to read stdin.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := readDocuments(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			var resp apihttp.DocumentsResponse
			path := "/api/v1/collections/" + url.PathEscape(args[0]) + "/documents"
			req := apihttp.DocumentsRequest{Documents: docs}
			if err := opts.client().do(cmd.Context(), http.MethodPost, path, req, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %d document(s) to %s\n", len(resp.IDs), args[0])
			return nil
		},
	}
}

func newCountCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "count <collection>",
		Short: "Count documents in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp apihttp.CountResponse
			path := "/api/v1/collections/" + url.PathEscape(args[0]) + "/count"
			if err := opts.client().do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", resp.Collection, resp.Count)
			return nil
		},
	}
}

func newSessionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Drive tutoring sessions",
	}

	var start apihttp.StartSessionRequest
	startCmd := &cobra.Command{
		Use:   "start <topic>",
		Short: "Start a tutoring session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start.Topic = strings.Join(args, " ")
			var reply tutor.Reply
			if err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/sessions", start, &reply); err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), &reply)
			return nil
		},
	}
	startCmd.Flags().StringVarP(&start.UserID, "user", "u", envOr("USER", "learner"), "learner id")
	startCmd.Flags().StringVarP(&start.Level, "level", "l", "", "beginner, intermediate or advanced")

	sayCmd := &cobra.Command{
		Use:   "say <session-id> <message>",
		Short: "Send a message to a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := apihttp.MessageRequest{Message: strings.Join(args[1:], " ")}
			var reply tutor.Reply
			if err := opts.client().do(cmd.Context(), http.MethodPost, sessionPath(args[0])+"/messages", req, &reply); err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), &reply)
			return nil
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show session state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var state tutor.State
			if err := opts.client().do(cmd.Context(), http.MethodGet, sessionPath(args[0]), nil, &state); err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Session:  %s\n", state.SessionID)
			fmt.Fprintf(w, "Topic:    %s\n", state.Topic)
			fmt.Fprintf(w, "Concept:  %s\n", state.CurrentConcept)
			fmt.Fprintf(w, "Level:    %s\n", state.StudentLevel)
			fmt.Fprintf(w, "Phase:    %s\n", state.Phase)
			fmt.Fprintf(w, "Score:    %d/%d (hints %d)\n", state.CorrectAnswers, state.QuestionsAsked, state.HintsGiven)
			if len(state.MasteredConcepts) > 0 {
				fmt.Fprintf(w, "Mastered: %s\n", strings.Join(state.MasteredConcepts, ", "))
			}
			fmt.Fprintf(w, "Ended:    %t\n", state.Ended)
			return nil
		},
	}

	endCmd := &cobra.Command{
		Use:   "end <session-id>",
		Short: "End a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reply tutor.Reply
			if err := opts.client().do(cmd.Context(), http.MethodDelete, sessionPath(args[0]), nil, &reply); err != nil {
				return err
			}
			printReply(cmd.OutOrStdout(), &reply)
			return nil
		},
	}

	cmd.AddCommand(startCmd, sayCmd, showCmd, endCmd)
	return cmd
}

func sessionPath(id string) string {
	return "/api/v1/sessions/" + url.PathEscape(id)
}

func printReply(w io.Writer, r *tutor.Reply) {
	for _, m := range r.Messages {
		fmt.Fprintf(w, "%s\n\n", m)
	}
	fmt.Fprintf(w, "[session %s | %s | %s | concept %q]\n", r.SessionID, r.Phase, r.Level, r.Concept)
	if r.Ended {
		fmt.Fprintln(w, "Session ended.")
	}
}

// readDocuments loads documents from a JSON array or a text file split on
// blank lines.
func readDocuments(path string, stdin io.Reader) ([]apihttp.DocumentInput, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var docs []apihttp.DocumentInput
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		if len(docs) == 0 {
			return nil, fmt.Errorf("no documents in %s", path)
		}
		return docs, nil
	}

	source := filepath.Base(path)
	var docs []apihttp.DocumentInput
	for _, p := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		docs = append(docs, apihttp.DocumentInput{
			Content:  p,
			Metadata: map[string]any{"source": source, "chunk": len(docs)},
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no content in %s", path)
	}
	return docs, nil
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
