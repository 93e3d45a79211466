package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"ClipFusion/internal/shared/config"
	"ClipFusion/modules/kit/logx"
)

const (
	defaultConnectTimeout = 2 * time.Second
	defaultSocketTimeout  = 2 * time.Second
	component             = "redis"
)

// Client 封装 go-redis，统一错误分类与日志。
//
// 约束：
// - 进程启动时构造一次，显式注入给需要的组件，不提供全局实例
// - 每次失败只做一次 分类 + ERROR 日志 + 返回，不重试、不返回默认值
// - redis.Nil 表示“不存在”，不是失败
type Client struct {
	rdb redis.UniversalClient
	log logx.Logger

	stopOnce sync.Once
	stop     chan struct{}
	wg       sync.WaitGroup
}

// Open 按配置创建客户端。连接是惰性的：这里 PING 失败只记录日志，不阻止启动，
// 就绪状态交给 /readyz 与周期探活反映。
func Open(cfg config.RedisConfig, log logx.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis url is empty")
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = defaultConnectTimeout
	}
	socket := cfg.SocketTimeout
	if socket <= 0 {
		socket = defaultSocketTimeout
	}
	opts.DialTimeout = connect
	opts.ReadTimeout = socket
	opts.WriteTimeout = socket
	// 重试是调用方的事
	opts.MaxRetries = -1

	c := New(redis.NewClient(opts), log)

	ctx, cancel := context.WithTimeout(context.Background(), connect)
	defer cancel()
	if err := c.Ping(ctx); err == nil {
		c.log.Info("open redis success", logx.Component(component), zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	}
	return c, nil
}

// New 用已有的 go-redis 客户端构造，测试里配合 miniredis 使用。
func New(rdb redis.UniversalClient, log logx.Logger) *Client {
	if log == nil {
		log = logx.NewZapLogger(nil)
	}
	return &Client{
		rdb:  rdb,
		log:  log,
		stop: make(chan struct{}),
	}
}

// fail 是所有失败路径的唯一出口：分类、记录一次日志、返回类型化错误。
func (c *Client) fail(ctx context.Context, op string, keys []string, err error) error {
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	e := newError(classify(err), op, keys, err)
	logx.ReportSysErrorWithLoggerContext(ctx, c.log, logx.NewSysLog(component, "redis "+op, e))
	return e
}

// SetOption 控制 Set 的过期时间与条件写入。
type SetOption func(*setOptions)

type setOptions struct {
	ttl          time.Duration
	onlyIfAbsent bool
	onlyIfExists bool
}

func WithTTL(d time.Duration) SetOption {
	return func(o *setOptions) { o.ttl = d }
}

// OnlyIfAbsent 对应 NX。
func OnlyIfAbsent() SetOption {
	return func(o *setOptions) { o.onlyIfAbsent = true }
}

// OnlyIfExists 对应 XX。
func OnlyIfExists() SetOption {
	return func(o *setOptions) { o.onlyIfExists = true }
}

func buildSetArgs(opts []SetOption) (redis.SetArgs, error) {
	var o setOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.onlyIfAbsent && o.onlyIfExists {
		return redis.SetArgs{}, ErrConflictingConditions
	}
	args := redis.SetArgs{TTL: o.ttl}
	switch {
	case o.onlyIfAbsent:
		args.Mode = "NX"
	case o.onlyIfExists:
		args.Mode = "XX"
	}
	return args, nil
}

// Set 写入 key，返回是否真正写入（条件不满足时为 false）。
func (c *Client) Set(ctx context.Context, key string, value any, opts ...SetOption) (bool, error) {
	args, err := buildSetArgs(opts)
	if err != nil {
		return false, err
	}
	res, err := c.rdb.SetArgs(ctx, key, value, args).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, c.fail(ctx, "SET", []string{key}, err)
	}
	return res == "OK", nil
}

// Get 读取 key，不存在时 found=false。
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, c.fail(ctx, "GET", []string{key}, err)
	}
	return val, true, nil
}

// Delete 删除 key，返回实际删除的数量。
func (c *Client) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		return 0, c.fail(ctx, "DELETE", keys, err)
	}
	return n, nil
}

// Incr 按 amount 自增并返回新值；key 不存在时从 0 开始。
func (c *Client) Incr(ctx context.Context, key string, amount int64) (int64, error) {
	n, err := c.rdb.IncrBy(ctx, key, amount).Result()
	if err != nil {
		return 0, c.fail(ctx, "INCR", []string{key}, err)
	}
	return n, nil
}

// Expire 设置过期时间；key 不存在时返回 false。
func (c *Client) Expire(ctx context.Context, key string, d time.Duration) (bool, error) {
	ok, err := c.rdb.Expire(ctx, key, d).Result()
	if err != nil {
		return false, c.fail(ctx, "EXPIRE", []string{key}, err)
	}
	return ok, nil
}

// TTL 返回剩余秒数。-1 表示没有过期时间，-2 表示 key 不存在，原样返回。
func (c *Client) TTL(ctx context.Context, key string) (int64, error) {
	d, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, c.fail(ctx, "TTL", []string{key}, err)
	}
	if d < 0 {
		// go-redis 对 -1/-2 不乘精度，直接放在 Duration 里
		return int64(d), nil
	}
	return int64(d / time.Second), nil
}

// Value 是 MGet 的单个结果，与输入 key 按位置对齐。
type Value struct {
	Key   string
	Val   string
	Found bool
}

func (c *Client) MGet(ctx context.Context, keys ...string) ([]Value, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	vals, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, c.fail(ctx, "MGET", keys, err)
	}
	out := make([]Value, len(keys))
	for i, key := range keys {
		out[i].Key = key
		if i >= len(vals) || vals[i] == nil {
			continue
		}
		out[i].Val = fmt.Sprint(vals[i])
		out[i].Found = true
	}
	return out, nil
}

// PipelineOption 控制批量提交方式。
type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	transactional bool
}

// WithoutTransaction 使用普通 pipeline 而不是 MULTI/EXEC。
func WithoutTransaction() PipelineOption {
	return func(o *pipelineOptions) { o.transactional = false }
}

// Batch 是 Pipeline 回调里可用的命令集合。命令只入队，回调返回后统一提交；
// 返回的 Cmd 在 Pipeline 成功返回后才有结果。
type Batch struct {
	pipe redis.Pipeliner
	keys []string
}

func (b *Batch) Set(key string, value any, ttl time.Duration) *redis.StatusCmd {
	b.keys = append(b.keys, key)
	return b.pipe.Set(context.Background(), key, value, ttl)
}

func (b *Batch) Delete(keys ...string) *redis.IntCmd {
	b.keys = append(b.keys, keys...)
	return b.pipe.Del(context.Background(), keys...)
}

func (b *Batch) Incr(key string, amount int64) *redis.IntCmd {
	b.keys = append(b.keys, key)
	return b.pipe.IncrBy(context.Background(), key, amount)
}

func (b *Batch) Expire(key string, d time.Duration) *redis.BoolCmd {
	b.keys = append(b.keys, key)
	return b.pipe.Expire(context.Background(), key, d)
}

func (b *Batch) Get(key string) *redis.StringCmd {
	b.keys = append(b.keys, key)
	return b.pipe.Get(context.Background(), key)
}

// Len 返回已入队的命令数。
func (b *Batch) Len() int {
	return b.pipe.Len()
}

// Pipeline 在 fn 中收集命令，fn 返回后一次性提交（默认 MULTI/EXEC）。
// fn 返回错误或提交失败时，队列被丢弃，返回一个类型化错误。
func (c *Client) Pipeline(ctx context.Context, fn func(*Batch) error, opts ...PipelineOption) error {
	o := pipelineOptions{transactional: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	var pipe redis.Pipeliner
	if o.transactional {
		pipe = c.rdb.TxPipeline()
	} else {
		pipe = c.rdb.Pipeline()
	}
	b := &Batch{pipe: pipe}

	if err := runBatch(fn, b); err != nil {
		pipe.Discard()
		return c.fail(ctx, "PIPELINE", b.keys, err)
	}
	if pipe.Len() == 0 {
		return nil
	}
	cmds, err := pipe.Exec(ctx)
	if err = firstFailure(cmds, err); err != nil {
		pipe.Discard()
		return c.fail(ctx, "PIPELINE", b.keys, err)
	}
	return nil
}

// firstFailure 找出批次里第一个真正的失败。Exec 只返回第一个出错命令的错误，
// 排在前面的 redis.Nil（GET 不存在的 key）会遮住后面的失败，所以逐条检查。
func firstFailure(cmds []redis.Cmder, execErr error) error {
	for _, cmd := range cmds {
		if err := cmd.Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
	}
	if execErr != nil && !errors.Is(execErr, redis.Nil) {
		return execErr
	}
	return nil
}

// runBatch 把回调里的 panic 也当作失败，保证队列被丢弃。
func runBatch(fn func(*Batch) error, b *Batch) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline callback panic: %v", r)
		}
	}()
	return fn(b)
}

// Ping 存活检查。
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return c.fail(ctx, "PING", nil, err)
	}
	return nil
}

// StartHealthCheck 按 interval 周期 PING，失败由 Ping 记录日志。Close 时停止。
func (c *Client) StartHealthCheck(interval time.Duration) {
	if interval <= 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), interval)
				_ = c.Ping(ctx)
				cancel()
			}
		}
	}()
}

// Close 停止探活并关闭连接池，可重复调用。
func (c *Client) Close() error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
		if err = c.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			c.log.Warn("关闭 Redis 连接失败", logx.Component(component), zap.String(logx.FieldError, err.Error()))
			return
		}
		err = nil
	})
	return err
}
