package console

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/meterdesk/readings/internal/core/domain"
	"github.com/meterdesk/readings/internal/core/service"
	"github.com/meterdesk/readings/internal/core/validator"
	"github.com/meterdesk/readings/internal/infrastructure/db/memory"
	"github.com/meterdesk/readings/internal/infrastructure/security"
	"github.com/meterdesk/readings/internal/infrastructure/seed"
)

type harness struct {
	users    *memory.UserRepository
	readings *memory.ReadingsRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		users:    memory.NewUserRepository(),
		readings: memory.NewReadingsRepository(),
	}
	err := seed.Users(context.Background(), h.users, security.NewBcryptHasher(bcrypt.MinCost), zerolog.Nop(),
		seed.Account{Login: "login", Password: "pass", Role: domain.RoleUser},
		seed.Account{Login: "admin", Password: "admin", Role: domain.RoleAdmin},
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return h
}

// run feeds lines to a fresh console and returns everything it printed.
func (h *harness) run(t *testing.T, lines ...string) string {
	t.Helper()
	v := validator.New()
	users := service.NewUserService(h.users, security.NewBcryptHasher(bcrypt.MinCost), v, zerolog.Nop())
	readings := service.NewReadingsService(h.readings, nil, v, zerolog.Nop())

	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	c := New(users, readings, in, &out, zerolog.Nop(), Options{ActionTimeout: time.Second})
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	return out.String()
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("expected output to contain %q\n--- output ---\n%s", w, out)
		}
	}
}

// ---------------------------------------------------------------------------
// Main menu
// ---------------------------------------------------------------------------

func TestConsole_ExitAndEOF(t *testing.T) {
	h := newHarness(t)

	assertContains(t, h.run(t, "3"), "Goodbye!")
	// No exit command: input simply ends.
	out := h.run(t, "9")
	assertContains(t, out, "Unknown option.")
}

func TestConsole_RegisterThenLogin(t *testing.T) {
	h := newHarness(t)

	out := h.run(t,
		"2", "alice", "pw1",
		"2", "alice", "other",
		"2", "", "pw",
		"1", "alice", "other",
		"1", " alice ", "pw1",
		"6",
		"3",
	)
	assertContains(t, out,
		"You have registered successfully.",
		"This login already exists.",
		"Invalid input: login is required",
		"Wrong login or password.",
		"Welcome, alice!",
	)
}

func TestConsole_OversizedLineIsRejected(t *testing.T) {
	h := newHarness(t)

	out := h.run(t,
		"2", strings.Repeat("x", 70000), "bob", "pw1",
		strings.Repeat("9", maxLineBytes+1),
		"1", "bob", "pw1",
		"6",
		"3",
	)
	assertContains(t, out,
		"Input is too long (max 4096 bytes), please try again.",
		"You have registered successfully.",
		"Welcome, bob!",
		"Goodbye!",
	)
	if _, ok, _ := h.users.FindByLogin(context.Background(), "bob"); !ok {
		t.Fatalf("expected bob to be registered after the rejected line")
	}
	if strings.Count(out, "Input is too long") != 2 {
		t.Fatalf("expected both oversized lines to be rejected\n%s", out)
	}
}

func TestConsole_LineAtLimitIsAccepted(t *testing.T) {
	h := newHarness(t)
	login := strings.Repeat("l", maxLineBytes)

	out := h.run(t, "2", login, "pw1", "3")
	assertContains(t, out, "You have registered successfully.")
	if _, ok, _ := h.users.FindByLogin(context.Background(), login); !ok {
		t.Fatalf("expected a login of exactly maxLineBytes to be kept whole")
	}
}

// ---------------------------------------------------------------------------
// User menu
// ---------------------------------------------------------------------------

func TestConsole_SubmitAndQuery(t *testing.T) {
	h := newHarness(t)

	out := h.run(t,
		"1", "login", "pass",
		"2",
		"4",
		"1", "3", "100", "50", "30.5",
		"1", "3", "1", "1", "1",
		"1", "1", "10", "5", "3",
		"2",
		"3", "3",
		"3", "7",
		"3", "13",
		"1", "abc",
		"1", "4", "10", "x",
		"1", "4", "-1", "0", "0",
		"4",
		"6",
		"3",
	)
	assertContains(t, out,
		"You have not submitted any readings.",
		"No readings found.",
		"Readings submitted successfully.",
		"Readings for this month have already been submitted.",
		"January: coldWater=3, heating=10, hotWater=5",
		"March: coldWater=30.5, heating=100, hotWater=50",
		"You have not submitted readings for this month.",
		"Invalid month number. Please enter a number from 1 to 12.",
		"Invalid value. Please enter numbers.",
		"Invalid input: heating must not be negative",
	)

	history, _ := h.readings.ListByUser(context.Background(), "login")
	if len(history) != 2 || history[0].Month != time.March || history[1].Month != time.January {
		t.Fatalf("unexpected stored history: %+v", history)
	}
	if history[0].Readings[domain.ReadingHeating] != 100 {
		t.Fatalf("rejected submission must not overwrite March: %v", history[0].Readings)
	}
}

func TestConsole_ChangePassword(t *testing.T) {
	h := newHarness(t)

	out := h.run(t,
		"1", "login", "pass",
		"5", "wrong", "new",
		"5", "pass", "",
		"5", "pass", "secret",
		"6",
		"1", "login", "pass",
		"1", "login", "secret",
		"6",
		"3",
	)
	assertContains(t, out,
		"Wrong old password.",
		"Invalid input: password is required",
		"Password changed successfully.",
		"Wrong login or password.",
	)
	if strings.Count(out, "Welcome, login!") != 2 {
		t.Fatalf("expected two successful logins\n%s", out)
	}
}

// ---------------------------------------------------------------------------
// Admin menu
// ---------------------------------------------------------------------------

func TestConsole_AdminViewsUser(t *testing.T) {
	h := newHarness(t)
	err := h.readings.Add(context.Background(), "login", time.February, domain.Readings{domain.ReadingHeating: 7})
	if err != nil {
		t.Fatal(err)
	}

	out := h.run(t,
		"1", "admin", "admin",
		"1", "login",
		"1", "nobody",
		"1", "admin",
		"2",
		"3",
		"3",
	)
	assertContains(t, out,
		"Welcome, admin!",
		"Users: admin, login",
		"February: heating=7",
		"No such user.",
		"No readings found.",
		"readings_auth_attempts_total",
	)
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func TestConsole_Message(t *testing.T) {
	c := New(nil, nil, strings.NewReader(""), &bytes.Buffer{}, zerolog.Nop(), Options{})

	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: readings must not be empty", domain.ErrValidation), "Invalid input: readings must not be empty"},
		{fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrInvalidMonth), "Invalid month number. Please enter a number from 1 to 12."},
		{domain.ErrAlreadySubmitted, "Readings for this month have already been submitted."},
		{domain.ErrSubmissionInProgress, "A submission for this month is already in progress, try again shortly."},
		{fmt.Errorf("add readings: %w", domain.NewStorageError("insert", errors.New("down"))), "Storage is unavailable, please try again later."},
		{context.DeadlineExceeded, "Storage is unavailable, please try again later."},
		{errors.New("boom"), "Something went wrong, please try again."},
	}
	for _, tt := range tests {
		if got := c.message(tt.err); got != tt.want {
			t.Errorf("message(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := map[string]bool{
		"10":    true,
		" 3.5 ": true,
		"0":     true,
		"abc":   false,
		"NaN":   false,
		"Inf":   false,
		"":      false,
	}
	for in, ok := range tests {
		if _, got := parseValue(in); got != ok {
			t.Errorf("parseValue(%q) ok = %v, want %v", in, got, ok)
		}
	}
}
