package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// onFailureScript counts a failure and trips the circuit when the threshold
// is reached. While open it does nothing. While half-open only the lease
// holder's failure counts, and it reopens the circuit.
//
// KEYS: open, fails, tripped, lease
// ARGV: fail window ms, threshold, cool down ms, lease holder
var onFailureScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
if redis.call('EXISTS', KEYS[3]) == 1 then
	if redis.call('GET', KEYS[4]) ~= ARGV[4] then
		return 0
	end
	redis.call('SET', KEYS[1], '1', 'PX', ARGV[3])
	redis.call('DEL', KEYS[2], KEYS[4])
	return 1
end
local fails = redis.call('INCR', KEYS[2])
if fails == 1 then
	redis.call('PEXPIRE', KEYS[2], ARGV[1])
end
if fails >= tonumber(ARGV[2]) then
	redis.call('SET', KEYS[1], '1', 'PX', ARGV[3])
	redis.call('SET', KEYS[3], '1')
	redis.call('DEL', KEYS[2], KEYS[4])
	return 1
end
return 0
`)

// onSuccessScript resets the failure count while closed and closes the
// circuit when the half-open lease holder succeeds. Late successes from
// calls admitted before the circuit tripped change nothing.
//
// KEYS: open, fails, tripped, lease
// ARGV: lease holder
var onSuccessScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
if redis.call('EXISTS', KEYS[3]) == 1 then
	if redis.call('GET', KEYS[4]) ~= ARGV[1] then
		return 0
	end
	redis.call('DEL', KEYS[2], KEYS[3], KEYS[4])
	return 2
end
redis.call('DEL', KEYS[2])
return 1
`)

type RedisBreaker struct {
	// Redis client used to read and update the circuit state.
	rdb *redis.Client
	// Name of the breaker, part of every key it owns.
	name string
	// Defines the behaviour and timing characteristics of the breaker.
	opts   Options
	logger *slog.Logger
	// Identifies this instance as the holder of the half-open lease.
	holder string
}

var _ Breaker = (*RedisBreaker)(nil)

func NewRedisBreaker(rdb *redis.Client, name string, opts Options, logger *slog.Logger) *RedisBreaker {
	if logger == nil {
		logger = slog.Default()
	}

	return &RedisBreaker{
		rdb:    rdb,
		name:   name,
		opts:   opts.withDefaults(),
		holder: uuid.NewString(),
		logger: logger.With(
			slog.String("component", "circuitbreaker"),
			slog.String("breaker", name),
		),
	}
}

type breakerKeys struct {
	open    string
	fails   string
	tripped string
	lease   string
}

func (b *RedisBreaker) keys() breakerKeys {
	prefix := b.opts.Prefix + b.name + ":"
	return breakerKeys{
		open:    prefix + "open",
		fails:   prefix + "fails",
		tripped: prefix + "tripped",
		lease:   prefix + "lease",
	}
}

// Allow returns nil if the call may proceed, or ErrCircuitOpen if it must be
// blocked. Once the cool down has passed exactly one caller gets the
// half-open lease and tries the endpoint.
func (b *RedisBreaker) Allow(ctx context.Context) error {
	state, err := b.State(ctx)
	if err != nil {
		return b.blind(err)
	}

	switch state {
	case Open:
		return ErrCircuitOpen
	case HalfOpen:
		k := b.keys()
		acquired, err := b.rdb.SetNX(ctx, k.lease, b.holder, b.opts.HalfOpenLease).Result()
		if err != nil {
			return b.blind(err)
		}
		if !acquired {
			return ErrCircuitOpen
		}
		b.logger.InfoContext(ctx, "half-open trial allowed")
	}

	return nil
}

func (b *RedisBreaker) OnSuccess(ctx context.Context) {
	k := b.keys()

	res, err := onSuccessScript.Run(ctx, b.rdb,
		[]string{k.open, k.fails, k.tripped, k.lease},
		b.holder,
	).Int()
	if err != nil {
		b.logger.WarnContext(ctx, "failed to record success", slog.Any("err", err))
		return
	}
	if res == 2 {
		b.logger.InfoContext(ctx, "circuit closed")
	}
}

func (b *RedisBreaker) OnFailure(ctx context.Context) {
	k := b.keys()

	opened, err := onFailureScript.Run(ctx, b.rdb,
		[]string{k.open, k.fails, k.tripped, k.lease},
		b.opts.FailWindow.Milliseconds(),
		b.opts.FailureThreshold,
		b.opts.OpenCoolDown.Milliseconds(),
		b.holder,
	).Int()
	if err != nil {
		b.logger.WarnContext(ctx, "failed to record failure", slog.Any("err", err))
		return
	}
	if opened == 1 {
		b.logger.WarnContext(ctx, "circuit opened", slog.Duration("cool_down", b.opts.OpenCoolDown))
	}
}

// State reads the current state. Closed is reported for a breaker that has
// never tripped.
func (b *RedisBreaker) State(ctx context.Context) (State, error) {
	k := b.keys()

	pipe := b.rdb.Pipeline()
	open := pipe.Exists(ctx, k.open)
	tripped := pipe.Exists(ctx, k.tripped)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return Closed, err
	}

	switch {
	case open.Val() == 1:
		return Open, nil
	case tripped.Val() == 1:
		return HalfOpen, nil
	default:
		return Closed, nil
	}
}

func (b *RedisBreaker) blind(err error) error {
	b.logger.Warn("breaker state unavailable", slog.Any("err", err), slog.Bool("fail_open", b.opts.FailOpen))
	if b.opts.FailOpen {
		return nil
	}
	return ErrCircuitOpen
}
