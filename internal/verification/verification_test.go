package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func TestStore_PutGetDelete(t *testing.T) {
	clock := newClock()
	s := NewStore[string](clock.Now)

	s.Put("a", "one", time.Minute)
	if v, err := s.Get("a"); err != nil || v != "one" {
		t.Fatalf("Get(a) = %q, %v", v, err)
	}

	s.Put("a", "two", time.Minute)
	if v, _ := s.Get("a"); v != "two" {
		t.Errorf("Get(a) after overwrite = %q", v)
	}

	s.Delete("a")
	if _, err := s.Get("a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(a) after Delete error = %v, want ErrNotFound", err)
	}
}

func TestStore_Expiry(t *testing.T) {
	clock := newClock()
	s := NewStore[int](clock.Now)

	s.Put("k", 1, time.Minute)
	clock.Advance(time.Minute)
	if _, err := s.Get("k"); err != nil {
		t.Errorf("Get at exact expiry error = %v, want still live", err)
	}

	clock.Advance(time.Second)
	if _, err := s.Get("k"); !errors.Is(err, ErrExpired) {
		t.Errorf("Get after expiry error = %v, want ErrExpired", err)
	}
	if _, err := s.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Get error = %v, want ErrNotFound once removed", err)
	}
}

func TestStore_Sweep(t *testing.T) {
	clock := newClock()
	s := NewStore[int](clock.Now)

	s.Put("short", 1, time.Minute)
	s.Put("long", 2, time.Hour)
	s.Put("shorter", 3, time.Second)

	clock.Advance(2 * time.Minute)
	if removed := s.Sweep(); removed != 2 {
		t.Errorf("Sweep() = %d, want 2", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if _, err := s.Get("long"); err != nil {
		t.Errorf("Get(long) error = %v", err)
	}
}

func TestStore_Run(t *testing.T) {
	clock := newClock()
	s := NewStore[int](clock.Now)
	s.Put("k", 1, time.Millisecond)
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond, func(removed int) {
			if removed > 0 {
				select {
				case swept <- removed:
				default:
				}
			}
		})
		close(done)
	}()

	select {
	case n := <-swept:
		if n != 1 {
			t.Errorf("swept %d, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run never swept")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

type captureNotifier struct {
	codes   map[string]string
	SendErr error
}

func (n *captureNotifier) SendCode(_ context.Context, address, code string) error {
	if n.SendErr != nil {
		return n.SendErr
	}
	if n.codes == nil {
		n.codes = map[string]string{}
	}
	n.codes[address] = code
	return nil
}

func newTestCodes(clock *fakeClock, n Notifier) *Codes {
	c := NewCodes(NewStore[Code](clock.Now), n, time.Minute, zerolog.Nop())
	c.cost = bcrypt.MinCost
	return c
}

func TestCodes_IssueAndVerify(t *testing.T) {
	clock := newClock()
	n := &captureNotifier{}
	c := newTestCodes(clock, n)

	if err := c.Issue(context.Background(), " Alice@Example.com "); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	code := n.codes["alice@example.com"]
	if len(code) != 6 {
		t.Fatalf("code = %q, want 6 digits", code)
	}

	if err := c.Verify("ALICE@example.com", code); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if err := c.Verify("alice@example.com", code); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Verify() error = %v, want ErrNotFound", err)
	}
}

func TestCodes_VerifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		advance time.Duration
		guess   func(issued string) string
		wantErr error
	}{
		{"expired", 2 * time.Minute, func(issued string) string { return issued }, ErrExpired},
		{"mismatch", 0, func(string) string { return "000000" }, ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newClock()
			n := &captureNotifier{}
			c := newTestCodes(clock, n)
			_ = c.Issue(context.Background(), "bob@example.com")

			clock.Advance(tt.advance)
			err := c.Verify("bob@example.com", tt.guess(n.codes["bob@example.com"]))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("unknown address", func(t *testing.T) {
		c := newTestCodes(newClock(), &captureNotifier{})
		if err := c.Verify("nobody@example.com", "123456"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Verify() error = %v, want ErrNotFound", err)
		}
	})
}

func TestCodes_TooManyAttempts(t *testing.T) {
	n := &captureNotifier{}
	c := newTestCodes(newClock(), n)
	_ = c.Issue(context.Background(), "eve@example.com")
	issued := n.codes["eve@example.com"]

	wrong := "000000"
	if issued == wrong {
		wrong = "111111"
	}
	for i := 1; i < MaxAttempts; i++ {
		if err := c.Verify("eve@example.com", wrong); !errors.Is(err, ErrMismatch) {
			t.Fatalf("attempt %d error = %v, want ErrMismatch", i, err)
		}
	}
	if err := c.Verify("eve@example.com", wrong); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("final attempt error = %v, want ErrTooManyAttempts", err)
	}
	if err := c.Verify("eve@example.com", issued); !errors.Is(err, ErrNotFound) {
		t.Errorf("Verify() after revocation error = %v, want ErrNotFound", err)
	}
}

func TestCodes_ConcurrentWrongGuesses(t *testing.T) {
	n := &captureNotifier{}
	c := newTestCodes(newClock(), n)
	_ = c.Issue(context.Background(), "mallory@example.com")
	wrong := "000000"
	if n.codes["mallory@example.com"] == wrong {
		wrong = "111111"
	}

	const guesses = 40
	errs := make(chan error, guesses)
	var wg sync.WaitGroup
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Verify("mallory@example.com", wrong)
		}()
	}
	wg.Wait()
	close(errs)

	var mismatches, revoked, gone int
	for err := range errs {
		switch {
		case errors.Is(err, ErrMismatch):
			mismatches++
		case errors.Is(err, ErrTooManyAttempts):
			revoked++
		case errors.Is(err, ErrNotFound):
			gone++
		default:
			t.Errorf("unexpected error %v", err)
		}
	}
	if mismatches != MaxAttempts-1 || revoked != 1 || gone != guesses-MaxAttempts {
		t.Errorf("mismatches = %d, revoked = %d, not found = %d", mismatches, revoked, gone)
	}
}

func TestCodes_FailedSendKeepsNewerCode(t *testing.T) {
	n := &captureNotifier{}
	c := newTestCodes(newClock(), n)
	if err := c.Issue(context.Background(), "sam@example.com"); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	stale, err := bcrypt.GenerateFromPassword([]byte("999999"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	c.discard("sam@example.com", stale)
	if err := c.Verify("sam@example.com", n.codes["sam@example.com"]); err != nil {
		t.Errorf("Verify() error = %v, want the current code to survive", err)
	}
}

func TestCodes_IssueErrors(t *testing.T) {
	c := newTestCodes(newClock(), &captureNotifier{})
	if err := c.Issue(context.Background(), "   "); err == nil {
		t.Error("Issue(blank) error = nil")
	}

	sendErr := errors.New("smtp down")
	store := NewStore[Code](nil)
	failing := NewCodes(store, &captureNotifier{SendErr: sendErr}, 0, zerolog.Nop())
	failing.cost = bcrypt.MinCost
	if err := failing.Issue(context.Background(), "x@example.com"); !errors.Is(err, sendErr) {
		t.Errorf("Issue() error = %v, want %v", err, sendErr)
	}
	if store.Len() != 0 {
		t.Error("code kept after notifier failure")
	}
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode() error = %v", err)
		}
		if len(code) != 6 || code[0] == '0' {
			t.Errorf("generateCode() = %q", code)
		}
	}
}
