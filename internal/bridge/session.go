package bridge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
	"github.com/AdkHex/AudioSyncMaster/internal/domain/port"
	"github.com/AdkHex/AudioSyncMaster/internal/infra/metrics"
	"go.uber.org/zap"
)

// ErrCanceled is the distinct terminal outcome of a canceled job. It is
// never conflated with ordinary failure.
var ErrCanceled = errors.New("sync canceled")

// initial stdout line buffer; grows as needed, no line length limit assumed.
const lineBufferSize = 64 * 1024

// Session owns one worker process for the duration of one job: it locates
// the executable, spawns it, writes the encoded request to stdin, drains
// stderr to the sink's log channel, and drives stdout through the codec,
// dispatching each decoded event to the sink.
type Session struct {
	locator *Locator
	token   *CancelToken
	log     *zap.Logger
}

func NewSession(locator *Locator, token *CancelToken, log *zap.Logger) *Session {
	return &Session{locator: locator, token: token, log: log}
}

// Run executes one job end to end and returns the final result list. The
// cancellation token is reset at start, so a stale cancel request from a
// previous job is discarded. Cancellation (via the token or ctx) yields
// ErrCanceled; all other failures carry a human-readable cause.
func (s *Session) Run(ctx context.Context, req entity.SyncRequest, sink port.EventSink) ([]entity.SyncResult, error) {
	s.token.Reset()

	worker, err := s.locator.Locate()
	if err != nil {
		return nil, err
	}
	switch worker.Strategy {
	case StrategySidecar:
		sink.OnLog(fmt.Sprintf("Using sidecar: %s", worker.Path))
	case StrategyInterpreter:
		sink.OnLog(fmt.Sprintf("Sidecar not found. Falling back to interpreter: %s", worker.Path))
	}
	s.log.Info("worker located",
		zap.String("strategy", string(worker.Strategy)),
		zap.String("path", worker.Path),
	)

	payload, err := EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(worker.Path, worker.Args...)
	configureCommand(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("open stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("open stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		sink.OnLog(fmt.Sprintf("Failed to start worker: %v", err))
		return nil, fmt.Errorf("start sync worker: %w", err)
	}

	// Single write, then close so the worker sees end-of-input.
	if _, err := stdin.Write(payload); err != nil {
		stdin.Close()
		terminateProcess(cmd)
		_ = cmd.Wait()
		return nil, fmt.Errorf("write job to worker: %w", err)
	}
	stdin.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.drainStderr(stderr, sink)
	}()

	// The read loop only observes cancellation between lines, so a silent
	// worker would pin it in a blocking read. The watcher kills the process
	// when cancellation is requested; the resulting EOF unblocks the loop.
	watchDone := make(chan struct{})
	go s.watchCancel(ctx, cmd, watchDone)

	results, canceled := s.readEvents(ctx, stdout, sink)
	close(watchDone)
	if canceled {
		terminateProcess(cmd)
		wg.Wait()
		_ = cmd.Wait()
		sink.OnLog("Sync canceled by user.")
		return nil, ErrCanceled
	}

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("sync worker failed: %w", err)
	}
	return results, nil
}

// readEvents is the main session loop. It processes stdout lines in emission
// order until end-of-stream, checking the cancellation token between lines.
// A line already read when cancellation is noticed is not processed.
func (s *Session) readEvents(ctx context.Context, stdout io.Reader, sink port.EventSink) (results []entity.SyncResult, canceled bool) {
	reader := bufio.NewReaderSize(stdout, lineBufferSize)
	for {
		line, readErr := reader.ReadString('\n')
		if s.stopRequested(ctx) {
			return nil, true
		}
		if line != "" {
			results = s.handleLine(line, results, sink)
		}
		if readErr != nil {
			// EOF or a broken pipe both end the meaningful stream.
			return results, false
		}
	}
}

func (s *Session) handleLine(line string, results []entity.SyncResult, sink port.EventSink) []entity.SyncResult {
	ev, err := DecodeEvent(line)
	if err != nil {
		if errors.Is(err, ErrBlankLine) {
			return results
		}
		metrics.DecodeFailuresTotal.Inc()
		sink.OnLog(err.Error())
		return results
	}

	metrics.BridgeEventsTotal.WithLabelValues(string(ev.Type())).Inc()

	switch ev := ev.(type) {
	case entity.ProgressEvent:
		sink.OnProgress(ev)
	case entity.FileStartEvent:
		sink.OnFileStart(ev)
	case entity.FileEndEvent:
		sink.OnFileEnd(ev)
	case entity.FileProgressEvent:
		sink.OnFileProgress(ev)
	case entity.LogEvent:
		sink.OnLog(ev.Message)
	case entity.ResultEvent:
		// Dual effect: accumulate and forward. The accumulator is the
		// fallback source of truth if no done event ever arrives.
		results = append(results, ev.SyncResult)
		sink.OnResult(ev)
	case entity.DoneEvent:
		// Authoritative override. The loop still runs to stream EOF and
		// process exit; a worker may emit trailing log lines after done.
		results = ev.Results
		sink.OnDone(ev)
	}
	return results
}

func (s *Session) watchCancel(ctx context.Context, cmd *exec.Cmd, done <-chan struct{}) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if s.stopRequested(ctx) {
				terminateProcess(cmd)
				return
			}
		}
	}
}

func (s *Session) drainStderr(stderr io.Reader, sink port.EventSink) {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, lineBufferSize), 1024*1024)
	for scanner.Scan() {
		sink.OnLog(scanner.Text())
	}
	// Scanner errors are swallowed: stderr forwarding never aborts the job.
}

func (s *Session) stopRequested(ctx context.Context) bool {
	return s.token.Canceled() || ctx.Err() != nil
}
