package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"io"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

//batching follows https://github.com/paul-milne/zap-loki

type Logger interface {
	Error(msg string, args ...any)
}

type Config struct {
	// Url of the push endpoint, e.g. https://example-prod.grafana.net/loki/api/v1/push
	Url string `validate:"required"`

	// TenantKey and TenantValue form the optional tenant header of multi-tenant setups.
	TenantKey   string
	TenantValue string

	// Username and Password enable basic auth when both are set.
	Username string
	Password string

	// Labels are attached to every stream. The entry level is added as the "level" label.
	Labels map[string]string

	BatchMaxSize   int           `validate:"gte=1"`
	BatchMaxWait   time.Duration `validate:"gte=1"`
	RequestTimeout time.Duration `validate:"gte=1"`

	// SendAttempts bounds how often one batch is offered to the server. Client errors are not retried.
	SendAttempts int           `validate:"gte=1,lte=10"`
	RetryDelay   time.Duration `validate:"gte=0"`
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 1000
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.SendAttempts == 0 {
		cfg.SendAttempts = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

var ErrStopped = errors.New("loki pusher stopped")

// permanentError marks a response that another attempt cannot fix.
type permanentError struct {
	error
}

type LogEntry struct {
	Time    time.Time         `json:"-"`
	Level   string            `json:"level"`
	Message string            `json:"msg"`
	Caller  string            `json:"caller,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Labels map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// batch collects encoded lines per level until they are sent.
type batch struct {
	lines map[string][][2]string
	size  int
}

func newBatch() *batch {
	return &batch{lines: make(map[string][][2]string)}
}

func (b *batch) add(entry LogEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to encode log entry")
	}
	at := entry.Time
	if at.IsZero() {
		at = time.Now()
	}
	b.lines[entry.Level] = append(b.lines[entry.Level], [2]string{strconv.FormatInt(at.UnixNano(), 10), string(line)})
	b.size++
	return nil
}

func (b *batch) request(labels map[string]string) pushRequest {
	levels := lo.Keys(b.lines)
	sort.Strings(levels)

	return pushRequest{Streams: lo.Map(levels, func(level string, _ int) stream {
		streamLabels := lo.Assign(labels, map[string]string{"level": level})
		return stream{Labels: streamLabels, Values: b.lines[level]}
	})}
}

type Pusher struct {
	config   Config
	ctx      context.Context
	cancel   context.CancelFunc
	client   *http.Client
	logger   Logger
	entries  chan LogEntry
	quit     chan struct{}
	done     sync.WaitGroup
	stopOnce sync.Once
}

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {

	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid loki config")
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		client:  &http.Client{Timeout: cfg.RequestTimeout},
		logger:  logger,
		entries: make(chan LogEntry, cfg.BatchMaxSize),
		quit:    make(chan struct{}),
	}

	p.done.Add(1)
	go p.run()
	return p, nil
}

// Push queues an entry for the next batch. It fails instead of blocking once the pusher is stopped.
func (p *Pusher) Push(e LogEntry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case p.entries <- e:
		return nil
	case <-p.quit:
		return ErrStopped
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Stop flushes what is queued and stops the pusher. Safe to call more than once.
func (p *Pusher) Stop() {
	p.stopOnce.Do(func() {
		close(p.quit)
		p.done.Wait()
		p.cancel()
	})
}

func (p *Pusher) run() {
	defer p.done.Done()

	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	current := newBatch()
	flush := func() {
		if current.size == 0 {
			return
		}
		if err := p.send(current); err != nil {
			p.logger.Error("failed to send logs", "error", err, "lines", current.size)
		}
		current = newBatch()
	}
	add := func(entry LogEntry) {
		if err := current.add(entry); err != nil {
			p.logger.Error("dropping log entry", "error", err)
		}
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.quit:
			for {
				select {
				case entry := <-p.entries:
					add(entry)
				default:
					flush()
					return
				}
			}
		case entry := <-p.entries:
			add(entry)
			if current.size >= p.config.BatchMaxSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (p *Pusher) send(b *batch) error {
	var body bytes.Buffer
	gz := gzip.NewWriter(&body)
	if err := json.NewEncoder(gz).Encode(b.request(p.config.Labels)); err != nil {
		return errors.Wrap(err, "failed to encode push request")
	}
	if err := gz.Close(); err != nil {
		return errors.Wrap(err, "failed to compress push request")
	}
	payload := body.Bytes()

	var lastErr error
	_, _, _ = lo.AttemptWhileWithDelay(p.config.SendAttempts, p.config.RetryDelay, func(int, time.Duration) (error, bool) {
		lastErr = p.post(payload)
		var permanent permanentError
		return lastErr, lastErr != nil && !errors.As(lastErr, &permanent)
	})
	return lastErr
}

func (p *Pusher) post(payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Url, bytes.NewReader(payload))
	if err != nil {
		return permanentError{errors.Wrap(err, "failed to create request")}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if p.config.TenantKey != "" {
		req.Header.Set(p.config.TenantKey, p.config.TenantValue)
	}
	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	err = errors.Errorf("unexpected response from loki: %s, body: %s", resp.Status, string(body))
	if resp.StatusCode < http.StatusInternalServerError && resp.StatusCode != http.StatusTooManyRequests {
		return permanentError{err}
	}
	return err
}
