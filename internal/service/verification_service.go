package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/bartab/internal/model"
	"github.com/iliyamo/bartab/internal/utils"
)

// VerificationService issues and checks one-time phone codes.
type VerificationService struct {
	Store    VerificationStore
	SMS      SMSSender
	Throttle ResendThrottle

	TTL         time.Duration
	MaxAttempts int
	// Dev returns the issued code to the caller.
	Dev bool

	Now     func() time.Time
	NewCode func() (string, error)
}

func NewVerificationService(store VerificationStore, sms SMSSender, throttle ResendThrottle, ttl time.Duration, maxAttempts int, dev bool) *VerificationService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &VerificationService{
		Store:       store,
		SMS:         sms,
		Throttle:    throttle,
		TTL:         ttl,
		MaxAttempts: maxAttempts,
		Dev:         dev,
		Now:         func() time.Time { return time.Now().UTC() },
		NewCode:     utils.NewVerificationCode,
	}
}

// Issued is the result of SendCode. Code is set only in development.
type Issued struct {
	ExpiresAt time.Time
	Code      string
}

// NormalizePhone strips formatting, keeping digits and a leading '+'. At
// least ten digits are required.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	digits := 0
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			digits++
		case r == '+' && i == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", invalid("phone", "contains invalid characters")
		}
	}
	if digits < 10 || digits > 15 {
		return "", invalid("phone", "must have between 10 and 15 digits")
	}
	return b.String(), nil
}

// SendCode issues a new code for phone and hands it to the SMS sender.
func (s *VerificationService) SendCode(ctx context.Context, rawPhone string) (*Issued, error) {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return nil, err
	}
	if s.Throttle != nil {
		ok, err := s.Throttle.Allow(ctx, phone)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrResendTooSoon
		}
	}

	code, err := s.NewCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	now := s.Now()
	v := &model.PhoneVerification{
		Phone:     phone,
		Code:      code,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
	}
	if err := s.Store.Create(ctx, v); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Your BarTab verification code is %s. It expires in %d minutes.", code, int(s.TTL.Minutes()))
	if err := s.SMS.Send(ctx, phone, msg); err != nil {
		return nil, fmt.Errorf("send sms: %w", err)
	}

	out := &Issued{ExpiresAt: v.ExpiresAt}
	if s.Dev {
		out.Code = code
	}
	return out, nil
}

// Verify checks code against the newest unverified code for phone. The
// checks run in a fixed order: expiry, then the attempt limit, then the
// code itself. A wrong code consumes an attempt.
func (s *VerificationService) Verify(ctx context.Context, rawPhone, code string) error {
	phone, err := NormalizePhone(rawPhone)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if len(code) != 6 {
		return invalid("code", "must be 6 digits")
	}

	now := s.Now()
	return s.Store.Attempt(ctx, phone, func(v *model.PhoneVerification) error {
		if !now.Before(v.ExpiresAt) {
			return ErrExpired
		}
		if v.Attempts >= s.MaxAttempts {
			return ErrLocked
		}
		if !utils.CodesEqual(v.Code, code) {
			v.Attempts++
			return ErrInvalidCode
		}
		v.Verified = true
		return nil
	})
}

// RedisThrottle allows one action per key per cooldown using SET NX EX.
type RedisThrottle struct {
	rdb      *redis.Client
	prefix   string
	cooldown time.Duration
}

func NewRedisThrottle(rdb *redis.Client, prefix string, cooldown time.Duration) *RedisThrottle {
	return &RedisThrottle{rdb: rdb, prefix: prefix, cooldown: cooldown}
}

// Allow fails open when no Redis client is configured.
func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	if t == nil || t.rdb == nil || t.cooldown <= 0 {
		return true, nil
	}
	return t.rdb.SetNX(ctx, t.prefix+key, 1, t.cooldown).Result()
}

// LogSender writes SMS messages to the process log instead of a carrier.
type LogSender struct{}

func (LogSender) Send(_ context.Context, phone, message string) error {
	log.Printf("sms: to %s: %s", maskPhone(phone), message)
	return nil
}

func maskPhone(p string) string {
	if len(p) <= 4 {
		return p
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}

var (
	_ ResendThrottle = (*RedisThrottle)(nil)
	_ SMSSender      = LogSender{}
)
