package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"FinScope/pkg/logger"
)

// RedisQueue is a reliable-enough job queue on Redis lists. Pending messages live in a
// list, delayed retries in a sorted set scored by due time, exhausted ones in a dead list.
type RedisQueue struct {
	cfg    Config
	client redis.UniversalClient
	logger *logger.Logger

	mu      sync.RWMutex
	jobs    map[string]Job
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRedisQueue(lgr *logger.Logger, cfg Config, client redis.UniversalClient) (*RedisQueue, error) {
	if client == nil {
		return nil, errors.New("queue: redis client is required")
	}
	if err := defaults.Set(&cfg); err != nil {
		return nil, fmt.Errorf("queue defaults: %w", err)
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &RedisQueue{cfg: cfg, client: client, logger: lgr, jobs: make(map[string]Job)}, nil
}

// RegisterJob adds a handler. Registering a type twice keeps the first handler.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, dup := r.jobs[job.Type()]; dup {
		r.logger.Warn("job type already registered",
			logger.String("type", job.Type()),
			logger.String("kept", prev.Name()),
			logger.String("ignored", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Debug("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

// Start checks connectivity, then launches the workers and the retry mover.
func (r *RedisQueue) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("queue: already running")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("queue: redis ping: %w", err)
	}

	runCtx, stop := context.WithCancel(context.Background())
	r.cancel = stop
	r.running = true
	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.work(runCtx, i)
	}
	r.wg.Add(1)
	go r.promoteRetries(runCtx)

	r.logger.Info("job queue running",
		logger.Int("workers", r.cfg.Workers),
		logger.Int("jobs", len(r.jobs)),
		logger.String("prefix", r.cfg.Prefix))
	return nil
}

// Stop cancels polling and waits for in-flight jobs until ctx expires.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue: stop: %w", ctx.Err())
	}
}

// Enqueue stores a message for the job registered under msgType.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload any) (string, error) {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()

	if !running {
		return "", ErrNotRunning
	}
	if !known {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, msgType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("queue: marshal %s payload: %w", msgType, err)
	}
	env := envelope{ID: uuid.NewString(), Type: msgType, Payload: body, EnqueuedAt: time.Now().UTC()}
	data, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("queue: marshal envelope: %w", err)
	}

	if r.cfg.MaxPending > 0 {
		n, err := r.client.LLen(ctx, r.key("pending")).Result()
		if err != nil {
			return "", fmt.Errorf("queue: llen: %w", err)
		}
		if n >= int64(r.cfg.MaxPending) {
			return "", ErrQueueFull
		}
	}
	if err := r.client.LPush(ctx, r.key("pending"), data).Err(); err != nil {
		return "", fmt.Errorf("queue: lpush: %w", err)
	}
	return env.ID, nil
}

// PublishMessage implements Publisher.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload any) error {
	_, err := r.Enqueue(ctx, msgType, payload)
	return err
}

// Stats reports the sizes of the pending, retry and dead collections.
func (r *RedisQueue) Stats(ctx context.Context) (pending, retrying, dead int64, err error) {
	pipe := r.client.Pipeline()
	p := pipe.LLen(ctx, r.key("pending"))
	s := pipe.ZCard(ctx, r.key("retry"))
	d := pipe.LLen(ctx, r.key("dead"))
	if _, err = pipe.Exec(ctx); err != nil {
		return 0, 0, 0, fmt.Errorf("queue: stats: %w", err)
	}
	return p.Val(), s.Val(), d.Val(), nil
}

func (r *RedisQueue) work(ctx context.Context, id int) {
	defer r.wg.Done()
	for ctx.Err() == nil {
		res, err := r.client.BRPop(ctx, r.cfg.PollTimeout, r.key("pending")).Result()
		switch {
		case err == nil:
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
			continue
		default:
			r.logger.Warn("queue poll failed", logger.Int("worker", id), logger.Error(err))
			sleep(ctx, r.cfg.PollTimeout)
			continue
		}
		// BRPOP returns [key, value]
		if len(res) != 2 {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(res[1]), &env); err != nil {
			r.logger.Warn("queue dropped malformed message", logger.Error(err))
			continue
		}
		r.run(ctx, env)
	}
}

func (r *RedisQueue) run(ctx context.Context, env envelope) {
	r.mu.RLock()
	job, ok := r.jobs[env.Type]
	r.mu.RUnlock()
	if !ok {
		env.LastError = ErrUnknownType.Error()
		r.bury(env)
		return
	}

	start := time.Now()
	err := job.Handle(ctx, env.Payload)
	if err == nil {
		r.logger.Debug("job done",
			logger.String("job", job.Name()),
			logger.String("id", env.ID),
			logger.Duration("took", time.Since(start)))
		return
	}
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// shutting down: hand the message back untouched
		r.push(r.key("pending"), env)
		return
	}

	env.Attempts++
	env.LastError = err.Error()
	if env.Attempts > r.cfg.RetryLimit {
		r.logger.Warn("job exhausted retries",
			logger.String("job", job.Name()),
			logger.String("id", env.ID),
			logger.Int("attempts", env.Attempts),
			logger.Error(err))
		r.bury(env)
		return
	}
	due := time.Now().Add(retryDelay(r.cfg.RetryDelay, env.Attempts))
	data, _ := json.Marshal(env)
	if zerr := r.client.ZAdd(context.Background(), r.key("retry"), redis.Z{Score: float64(due.Unix()), Member: data}).Err(); zerr != nil {
		r.logger.Warn("queue retry schedule failed", logger.String("id", env.ID), logger.Error(zerr))
		return
	}
	r.logger.Info("job retry scheduled",
		logger.String("job", job.Name()),
		logger.String("id", env.ID),
		logger.Int("attempt", env.Attempts),
		logger.Time("due", due),
		logger.Error(err))
}

// promoteRetries moves due retries back onto the pending list.
func (r *RedisQueue) promoteRetries(ctx context.Context) {
	defer r.wg.Done()
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			due, err := r.client.ZRangeByScore(ctx, r.key("retry"), &redis.ZRangeBy{
				Min: "-inf",
				Max: strconv.FormatInt(now.Unix(), 10),
			}).Result()
			if err != nil {
				if ctx.Err() == nil {
					r.logger.Warn("queue retry scan failed", logger.Error(err))
				}
				continue
			}
			for _, m := range due {
				// ZREM wins the race when several instances share the queue
				n, err := r.client.ZRem(ctx, r.key("retry"), m).Result()
				if err != nil || n == 0 {
					continue
				}
				if err := r.client.LPush(ctx, r.key("pending"), m).Err(); err != nil {
					r.logger.Warn("queue retry promote failed", logger.Error(err))
				}
			}
		}
	}
}

func (r *RedisQueue) bury(env envelope) {
	r.push(r.key("dead"), env)
}

func (r *RedisQueue) push(key string, env envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.LPush(ctx, key, data).Err(); err != nil {
		r.logger.Warn("queue push failed", logger.String("key", key), logger.String("id", env.ID), logger.Error(err))
	}
}

func (r *RedisQueue) key(name string) string { return r.cfg.Prefix + ":" + name }

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

var _ Publisher = (*RedisQueue)(nil)
