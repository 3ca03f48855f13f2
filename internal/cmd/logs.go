package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/runger/dishdex/internal/config"
	"github.com/runger/dishdex/internal/logging"
)

var (
	logsFollow bool
	logsLines  int
	logsLevel  string
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Short:   "View browser logs",
	GroupID: groupSetup,
	Long: `View the dishdex browser log file.

By default, shows the last 50 lines of the log file.
Use --follow to continuously monitor new log entries and --level to hide
entries below a level.

Examples:
  dishdex logs              # Show last 50 lines
  dishdex logs -f           # Follow log output
  dishdex logs --lines=100  # Show last 100 lines
  dishdex logs --level=warn # Only warnings and errors`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Minimum level to show (debug, info, warn, error)")
	rootCmd.AddCommand(logsCmd)
}

// logFilePath returns the configured browser log file.
func logFilePath() string {
	if cfg, err := config.Load(); err == nil && cfg.Log.File != "" {
		return cfg.Log.File
	}
	return config.DefaultPaths().LogFile()
}

func runLogs(cmd *cobra.Command, args []string) error {
	logFile := logFilePath()

	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		fmt.Printf("No log file found at: %s\n", logFile)
		fmt.Println("The browser has not been started yet.")
		return nil
	}

	keep := levelFilter(logsLevel)

	lines, err := tailLogs(logFile, logsLines, keep)
	if err != nil {
		return err
	}
	for _, line := range lines {
		fmt.Println(line)
	}

	if logsFollow {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return followLogs(ctx, logFile, os.Stdout, keep)
	}
	return nil
}

// levelFilter returns a predicate keeping JSON log lines at or above min.
// Lines that are not JSON are always kept.
func levelFilter(min string) func(string) bool {
	if strings.TrimSpace(min) == "" {
		return func(string) bool { return true }
	}
	threshold := logging.ParseLevel(min)
	return func(line string) bool {
		var rec struct {
			Level string `json:"level"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Level == "" {
			return true
		}
		return logging.ParseLevel(rec.Level) >= threshold
	}
}

const tailChunkSize = 4096

// tailLogs returns up to n of the last lines of filename that keep accepts.
func tailLogs(filename string, n int, keep func(string) bool) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}
	return collectTailLines(f, stat.Size(), n, keep)
}

// collectTailLines reads f backwards from size in chunks until n kept lines
// are found or the start of the file is reached.
func collectTailLines(f io.ReaderAt, size int64, n int, keep func(string) bool) ([]string, error) {
	lines := make([]string, 0, n)
	offset := size
	remainder := ""

	for len(lines) < n && offset > 0 {
		chunk, rest, err := readChunkLines(f, &offset, tailChunkSize, remainder)
		if err != nil {
			return nil, err
		}
		remainder = rest
		for i := len(chunk) - 1; i >= 0 && len(lines) < n; i-- {
			if chunk[i] != "" && keep(chunk[i]) {
				lines = append([]string{chunk[i]}, lines...)
			}
		}
	}

	if remainder != "" && len(lines) < n && keep(remainder) {
		lines = append([]string{remainder}, lines...)
	}
	return lines, nil
}

// readChunkLines reads the chunk ending at *offset, moves *offset back and
// returns the complete lines in it plus the leading fragment, which belongs
// to the next chunk read.
func readChunkLines(f io.ReaderAt, offset *int64, bufSize int64, remainder string) ([]string, string, error) {
	readSize := bufSize
	if *offset < bufSize {
		readSize = *offset
	}
	*offset -= readSize

	buf := make([]byte, readSize)
	read, err := f.ReadAt(buf, *offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("failed to read log file: %w", err)
	}

	lines := strings.Split(string(buf[:read])+remainder, "\n")
	if *offset > 0 && len(lines) > 0 {
		return lines[1:], lines[0], nil
	}
	return lines, "", nil
}

// followLogs prints lines appended to filename until ctx ends.
func followLogs(ctx context.Context, filename string, out io.Writer, keep func(string) bool) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}
	defer w.Close()
	if err := w.Add(filename); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	fmt.Fprintf(out, "Following %s (Ctrl+C to stop)...\n\n", filename)

	reader := bufio.NewReader(f)
	partial := ""
	drain := func() error {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if errors.Is(err, io.EOF) {
					partial += line
					return nil
				}
				return fmt.Errorf("error reading log: %w", err)
			}
			line = strings.TrimRight(partial+line, "\n")
			partial = ""
			if line != "" && keep(line) {
				fmt.Fprintln(out, line)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) {
				if err := drain(); err != nil {
					return err
				}
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				return fmt.Errorf("log file %s was moved", filename)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch log file: %w", err)
		}
	}
}
