package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/pipectl/internal/errors"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show or follow the pipectl log file",
	Long: `View the log file configured with log.file (or --log-file).

JSON log lines are shown compactly as time, level, message and
attributes. Text log lines are shown as written.

Examples:
  # Show the last 20 entries
  pipectl logs

  # Show the last 50 entries for one task
  pipectl logs --lines 50 --task 3f2c9a

  # Follow new entries until Ctrl+C
  pipectl logs --follow
`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().IntP("lines", "n", 20, "number of recent entries to show")
	logsCmd.Flags().Bool("follow", false, "keep printing new entries as they are written")
	logsCmd.Flags().String("task", "", "only show entries for this task id")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return fmt.Errorf("failed to create command context: %w", err)
	}
	cfg, err := cc.LoadConfig(os.LookupEnv)
	if err != nil {
		return err
	}
	if cfg.Log.File == "" {
		return errors.NewConfigInvalidError("log.file", "not set; enable it with 'pipectl config set log.file <path>'")
	}

	lines, _ := cmd.Flags().GetInt("lines")
	follow, _ := cmd.Flags().GetBool("follow")
	taskID, _ := cmd.Flags().GetString("task")

	file, err := os.Open(cfg.Log.File)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no logs found at %s", cfg.Log.File)
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	out := cmd.OutOrStdout()
	entries, err := readLogLines(file, taskID)
	if err != nil {
		return err
	}
	if lines > 0 && len(entries) > lines {
		entries = entries[len(entries)-lines:]
	}
	for _, line := range entries {
		fmt.Fprintln(out, formatLogLine(line))
	}

	if !follow {
		return nil
	}
	return followLog(cmd.Context(), file, taskID, out, 250*time.Millisecond)
}

// readLogLines returns the non-blank lines of r that mention taskID,
// or all of them when taskID is empty
func readLogLines(r io.Reader, taskID string) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if matchesTask(line, taskID) {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading log file: %w", err)
	}
	return lines, nil
}

// followLog prints lines appended to file until ctx is done. file must be
// positioned at the end of what was already shown.
func followLog(ctx context.Context, file *os.File, taskID string, out io.Writer, every time.Duration) error {
	reader := bufio.NewReader(file)
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	var partial string
	for {
		for {
			chunk, err := reader.ReadString('\n')
			partial += chunk
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("error reading log file: %w", err)
			}
			line := strings.TrimRight(partial, "\r\n")
			partial = ""
			if matchesTask(line, taskID) {
				fmt.Fprintln(out, formatLogLine(line))
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func matchesTask(line, taskID string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	if taskID == "" {
		return true
	}
	var event map[string]any
	if err := json.Unmarshal([]byte(line), &event); err == nil {
		return fmt.Sprint(event["task_id"]) == taskID
	}
	return strings.Contains(line, "task_id="+taskID)
}

// formatLogLine renders a JSON log entry as "[15:04:05] INFO msg k=v".
// Anything else is returned unchanged.
func formatLogLine(line string) string {
	var event map[string]any
	if err := json.Unmarshal([]byte(line), &event); err != nil {
		return line
	}

	stamp := fmt.Sprint(event["time"])
	if t, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
		stamp = t.Format("15:04:05")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %-5s %v", stamp, event["level"], event["msg"])

	keys := make([]string, 0, len(event))
	for k := range event {
		switch k {
		case "time", "level", "msg":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, event[k])
	}
	return b.String()
}
