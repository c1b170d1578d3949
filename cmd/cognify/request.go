package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cognify-learn/cognify/pkg/apiclient"
	"github.com/cognify-learn/cognify/pkg/authsdk"
	"github.com/cognify-learn/cognify/pkg/credstore"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

var methods = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete,
}

func (c *cli) requestCmd() *cobra.Command {
	var (
		data        string
		query       []string
		headers     []string
		retries     int
		anonymous   bool
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "request METHOD PATH",
		Short: "Call an API endpoint with the stored session",
		Long: `Call an API endpoint. The session is renewed when the access token has
expired, and the call is retried with backoff on server and network errors.

  cognify request GET /api/v1/courses -q page=2
  cognify request POST /api/v1/courses --data '{"title":"Go"}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			method := strings.ToUpper(args[0])
			if !slices.Contains(methods, method) {
				return fmt.Errorf("unsupported method %q", args[0])
			}

			req := apiclient.Request{
				Method:   method,
				Path:     args[1],
				SkipAuth: anonymous,
			}
			if data != "" {
				if !json.Valid([]byte(data)) {
					return errors.New("--data must be valid JSON")
				}
				req.Body = json.RawMessage(data)
			}
			if cmd.Flags().Changed("retries") {
				req.Retries = apiclient.Retries(retries)
			}
			var err error
			if req.Query, err = parsePairs(query, "="); err != nil {
				return err
			}
			h, err := parsePairs(headers, ":")
			if err != nil {
				return err
			}
			for k, vs := range h {
				if req.Header == nil {
					req.Header = http.Header{}
				}
				for _, v := range vs {
					req.Header.Add(k, v)
				}
			}

			ctx := cmd.Context()
			if !anonymous {
				c.session.Init(ctx)
			}
			resp, err := c.api.Execute(ctx, req)
			if showMetrics {
				defer c.dumpMetrics(cmd.ErrOrStderr())
			}
			if err != nil {
				return err
			}
			return printBody(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringArrayVarP(&query, "query", "q", nil, "Query parameter key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Header 'Key: value' (repeatable)")
	cmd.Flags().IntVar(&retries, "retries", 0, "Override the configured retry count")
	cmd.Flags().BoolVar(&anonymous, "anonymous", false, "Send the request without credentials")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print client metrics to stderr afterwards")
	return cmd
}

func parsePairs(pairs []string, sep string) (url.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	v := url.Values{}
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, sep)
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed pair %q, want key%svalue", p, sep)
		}
		v.Add(key, strings.TrimSpace(value))
	}
	return v, nil
}

// printBody pretty prints JSON bodies and copies anything else verbatim.
func printBody(w io.Writer, resp *apiclient.Response) error {
	if len(resp.Body) == 0 {
		writeLine(w, "%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, resp.Body, "", "  "); err == nil {
		buf.WriteByte('\n')
		_, err = buf.WriteTo(w)
		return err
	}
	_, err := w.Write(resp.Body)
	return err
}

func (c *cli) dumpMetrics(w io.Writer) {
	families, err := c.registry.Gather()
	if err != nil {
		c.logger.Warn("failed to gather metrics", "err", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return
		}
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow session changes made by other cognify processes",
		Long: `Print a line whenever the stored session changes, for instance when
another terminal logs in, logs out or renews the access token. Only the file
store can be watched. Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.file == nil {
				return fmt.Errorf("watch needs the %q store", storeFile)
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var (
				mu   sync.Mutex
				last string
			)
			report := func(doc map[string]string) {
				line := describeSession(doc[credstore.CredentialKey], time.Now())
				mu.Lock()
				defer mu.Unlock()
				if line == last {
					return
				}
				last = line
				writeLine(out, "%s", line)
			}

			if err := c.file.Watch(ctx, report); err != nil {
				return err
			}
			doc, err := c.file.Snapshot()
			if err != nil {
				return err
			}
			report(doc)
			<-ctx.Done()
			return nil
		},
	}
}

// describeSession summarises a stored credential in one line.
func describeSession(credential string, now time.Time) string {
	if credential == "" {
		return "signed out"
	}
	res := authsdk.Decode(credential, now)
	if !res.Valid {
		return "signed in, access token expired"
	}
	id := res.Identity
	line := fmt.Sprintf("signed in as %s [%s]", id.Username, strings.Join(id.Roles, ","))
	if !id.ExpiresAt.IsZero() {
		line += fmt.Sprintf(" until %s", id.ExpiresAt.Local().Format(time.TimeOnly))
	}
	return line
}
