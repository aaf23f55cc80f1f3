// Command eval runs a labeled query set against a running /ask endpoint and
// reports accuracy: basic exact-substring matching, or the stricter v2
// OK/PARTIAL/WRONG labeling over required/forbidden/optional spans.
package main

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"manualqa/eval"
)

var (
	flagAPI     string
	flagFile    string
	flagMode    string
	flagTopK    int
	flagTimeout int
	flagIgnore  []string
	flagOut     string
)

var rootCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate /ask answers against a labeled query set",
	Long: `Reads a JSONL eval set, issues one /ask request per query, and prints
per-query judgements plus an accuracy summary. A CSV report is written to
the --out path.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&flagAPI, "api", "http://127.0.0.1:8000/api/v1/ask", "ask endpoint URL")
	rootCmd.Flags().StringVar(&flagFile, "file", "", "eval set path (JSONL)")
	rootCmd.Flags().StringVar(&flagMode, "mode", "", "basic or v2")
	rootCmd.Flags().IntVar(&flagTopK, "topk", 4, "contexts per query")
	rootCmd.Flags().IntVar(&flagTimeout, "timeout", 30, "request timeout in seconds")
	rootCmd.Flags().StringSliceVar(&flagIgnore, "ignore", []string{"영업"}, "tokens stripped before span matching")
	rootCmd.Flags().StringVar(&flagOut, "out", "eval_report.csv", "CSV report path")
	rootCmd.MarkFlagRequired("file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if flagMode != "basic" && flagMode != "v2" {
		return fmt.Errorf("--mode must be basic or v2")
	}
	cases, err := readCases(flagFile)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: time.Duration(flagTimeout) * time.Second}

	var rows [][]string
	if flagMode == "basic" {
		rows = runBasic(cmd, client, cases)
	} else {
		rows = runV2(cmd, client, cases)
	}

	if err := writeReport(flagOut, rows); err != nil {
		return err
	}
	cmd.Printf("\nSaved report -> %s\n", flagOut)
	return nil
}

func runBasic(cmd *cobra.Command, client *http.Client, cases []eval.Case) [][]string {
	rows := [][]string{{"query", "answer_span", "prediction", "status"}}
	ok := 0
	for _, c := range cases {
		pred := callAsk(client, c.Query)
		status := "XX"
		if eval.BasicHit(pred, c.AnswerSpan, flagIgnore) {
			status = "OK"
			ok++
		}
		cmd.Printf("[%s] Q=%s | want=%s | got=%s...\n", status, c.Query, c.AnswerSpan, head(pred, 80))
		rows = append(rows, []string{c.Query, c.AnswerSpan, pred, status})
	}
	tot := len(cases)
	acc := 0.0
	if tot > 0 {
		acc = float64(ok) / float64(tot)
	}
	cmd.Printf("\n== BASIC RESULT ==\n")
	cmd.Printf("Exact-Substring@Ans = %d/%d = %.2f%%\n", ok, tot, acc*100)
	return rows
}

func runV2(cmd *cobra.Command, client *http.Client, cases []eval.Case) [][]string {
	rows := [][]string{{
		"query", "prediction", "required_spans", "forbidden_spans", "optional_spans",
		"req_hits", "forb_hits", "opt_hits", "label",
	}}
	var sum eval.Summary
	for _, c := range cases {
		pred := callAsk(client, c.Query)
		label := eval.Judge(c, pred, flagIgnore)
		sum.Add(label)

		reqHits := eval.SpanHits(pred, c.RequiredSpans, flagIgnore)
		forbHits := eval.SpanHits(pred, c.ForbiddenSpans, flagIgnore)
		optHits := eval.SpanHits(pred, c.OptionalSpans, flagIgnore)
		cmd.Printf("[%s] Q=%s | req=%d/%d forb=%d opt=%d | pred=%s...\n",
			label, c.Query, reqHits, len(c.RequiredSpans), forbHits, optHits, head(pred, 80))
		rows = append(rows, []string{
			c.Query, pred,
			strings.Join(c.RequiredSpans, "|"),
			strings.Join(c.ForbiddenSpans, "|"),
			strings.Join(c.OptionalSpans, "|"),
			strconv.Itoa(reqHits), strconv.Itoa(forbHits), strconv.Itoa(optHits),
			string(label),
		})
	}
	cmd.Printf("\n== V2 RESULT ==\n")
	cmd.Printf("OK=%d  PARTIAL=%d  WRONG=%d  TOT=%d\n", sum.OK, sum.Partial, sum.Wrong, sum.Total())
	cmd.Printf("Strict@OK = %.2f%%\n", sum.Strict()*100)
	cmd.Printf("Blended(OK + 0.5*PARTIAL) = %.2f%%\n", sum.Blended()*100)
	return rows
}

func callAsk(client *http.Client, query string) string {
	body, _ := json.Marshal(map[string]any{"query": query, "top_k": flagTopK})
	resp, err := client.Post(flagAPI, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Sprintf("[ERROR] %v", err)
	}
	defer resp.Body.Close()

	var data struct {
		Answer string `json:"answer"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return fmt.Sprintf("[ERROR] %v", err)
	}
	return data.Answer
}

func readCases(path string) ([]eval.Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cases []eval.Case
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var c eval.Case
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			return nil, fmt.Errorf("parse eval case %q: %w", head(line, 40), err)
		}
		cases = append(cases, c)
	}
	return cases, scanner.Err()
}

func writeReport(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
