package ratelimit

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRedisKeyPrefix = "wishlist:ratelimit:"
	defaultRedisTimeout   = 5 * time.Second
)

// RedisConfig configures a Redis-backed limiter store.
type RedisConfig struct {
	Host      string
	Port      string
	DB        int
	Password  string
	KeyPrefix string
	Timeout   time.Duration
}

// RedisStore enforces the fixed window limit through a shared Redis counter,
// so the quota holds across service instances. It speaks a minimal RESP
// dialect over a short-lived connection per decision.
type RedisStore struct {
	cfg       Config
	addr      string
	password  string
	db        int
	keyPrefix string
	timeout   time.Duration
}

// NewRedisStore creates a limiter store backed by Redis.
func NewRedisStore(limit Config, cfg RedisConfig) (*RedisStore, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("redis host is required")
	}
	limit.withDefaults()
	port := cfg.Port
	if port == "" {
		port = "6379"
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultRedisTimeout
	}
	return &RedisStore{
		cfg:       limit,
		addr:      net.JoinHostPort(cfg.Host, port),
		password:  cfg.Password,
		db:        cfg.DB,
		keyPrefix: prefix,
		timeout:   timeout,
	}, nil
}

// NewRedisStoreFromEnv initialises a Redis limiter store using standard env
// vars, or returns nil when REDIS_HOST is unset.
func NewRedisStoreFromEnv(limit Config) (*RedisStore, error) {
	host := strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if host == "" {
		return nil, nil
	}
	cfg := RedisConfig{
		Host:     host,
		Port:     strings.TrimSpace(os.Getenv("REDIS_PORT")),
		Password: os.Getenv("REDIS_PASSWORD"),
	}
	if raw := strings.TrimSpace(os.Getenv("REDIS_DB")); raw != "" {
		if db, err := strconv.Atoi(raw); err == nil {
			cfg.DB = db
		}
	}
	return NewRedisStore(limit, cfg)
}

// Take increments the client's window counter in Redis. The key is given the
// window length as its expiry on first increment, so the counter resets
// exactly at window boundaries.
func (s *RedisStore) Take(ctx context.Context, key string) (Decision, error) {
	redisKey := s.keyPrefix + key
	var decision Decision
	err := s.withConn(ctx, func(conn *redisConn) error {
		count, err := conn.commandInt("INCR", redisKey)
		if err != nil {
			return err
		}
		if count == 1 {
			windowMS := strconv.FormatInt(s.cfg.Window.Milliseconds(), 10)
			if _, err := conn.commandInt("PEXPIRE", redisKey, windowMS); err != nil {
				return err
			}
		}
		if count <= int64(s.cfg.MaxRequests) {
			decision = Decision{Allowed: true, Remaining: s.cfg.MaxRequests - int(count)}
			return nil
		}
		ttl, err := conn.commandInt("PTTL", redisKey)
		if err != nil || ttl < 0 {
			ttl = s.cfg.Window.Milliseconds()
		}
		decision = Decision{Allowed: false, RetryAfter: time.Duration(ttl) * time.Millisecond}
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	return decision, nil
}

// Close satisfies Store; connections are per-call.
func (s *RedisStore) Close() error {
	return nil
}

func (s *RedisStore) withConn(ctx context.Context, fn func(*redisConn) error) error {
	conn, err := newRedisConn(ctx, s.addr, s.timeout)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := conn.initialize(s.password, s.db); err != nil {
		return err
	}
	return fn(conn)
}

type redisConn struct {
	conn   net.Conn
	reader *bufio.Reader
	writer *bufio.Writer
}

func newRedisConn(ctx context.Context, addr string, timeout time.Duration) (*redisConn, error) {
	dialer := &net.Dialer{Timeout: timeout}
	c, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &redisConn{
		conn:   c,
		reader: bufio.NewReader(c),
		writer: bufio.NewWriter(c),
	}, nil
}

func (c *redisConn) initialize(password string, db int) error {
	if password != "" {
		if err := c.send("AUTH", password); err != nil {
			return err
		}
		if _, err := c.read(); err != nil {
			return err
		}
	}
	if db != 0 {
		if err := c.send("SELECT", strconv.Itoa(db)); err != nil {
			return err
		}
		if _, err := c.read(); err != nil {
			return err
		}
	}
	return nil
}

func (c *redisConn) commandInt(cmd string, args ...string) (int64, error) {
	if err := c.send(cmd, args...); err != nil {
		return 0, err
	}
	reply, err := c.read()
	if err != nil {
		return 0, err
	}
	v, ok := reply.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected %s reply type %T", cmd, reply)
	}
	return v, nil
}

func (c *redisConn) send(cmd string, args ...string) error {
	if _, err := fmt.Fprintf(c.writer, "*%d\r\n", len(args)+1); err != nil {
		return err
	}
	if err := writeBulk(c.writer, strings.ToUpper(cmd)); err != nil {
		return err
	}
	for _, arg := range args {
		if err := writeBulk(c.writer, arg); err != nil {
			return err
		}
	}
	return c.writer.Flush()
}

func writeBulk(w *bufio.Writer, value string) error {
	_, err := fmt.Fprintf(w, "$%d\r\n%s\r\n", len(value), value)
	return err
}

func (c *redisConn) read() (any, error) {
	prefix, err := c.reader.ReadByte()
	if err != nil {
		return nil, err
	}
	switch prefix {
	case '+':
		line, err := readLine(c.reader)
		if err != nil {
			return nil, err
		}
		return line, nil
	case '-':
		line, err := readLine(c.reader)
		if err != nil {
			return nil, err
		}
		return nil, errors.New(line)
	case ':':
		line, err := readLine(c.reader)
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(line, 10, 64)
		if err != nil {
			return nil, err
		}
		return v, nil
	case '$':
		line, err := readLine(c.reader)
		if err != nil {
			return nil, err
		}
		length, err := strconv.Atoi(line)
		if err != nil {
			return nil, err
		}
		if length == -1 {
			return nil, nil
		}
		buf := make([]byte, length+2)
		if _, err := io.ReadFull(c.reader, buf); err != nil {
			return nil, err
		}
		return string(buf[:length]), nil
	default:
		return nil, fmt.Errorf("unexpected redis prefix %q", prefix)
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r"), nil
}

func (c *redisConn) Close() error {
	return c.conn.Close()
}
