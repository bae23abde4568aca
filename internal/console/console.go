// Package console drives the line-oriented menus of the application.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/meterdesk/readings/internal/core/domain"
	"github.com/meterdesk/readings/internal/core/ports"
	"github.com/meterdesk/readings/internal/metrics"
)

const (
	defaultActionTimeout = 10 * time.Second
	// maxLineBytes caps a single input line; longer lines are discarded.
	maxLineBytes = 4096
)

// Options tunes a Console. Zero values fall back to sensible defaults.
type Options struct {
	// ReadingTypes are asked for, in order, when submitting readings.
	ReadingTypes []string
	// ActionTimeout bounds every service call made for one menu action.
	ActionTimeout time.Duration
	// Gatherer feeds the admin statistics screen.
	Gatherer prometheus.Gatherer
}

type Console struct {
	users    ports.UserService
	readings ports.ReadingsService
	log      zerolog.Logger

	in  *bufio.Reader
	out io.Writer

	types    []string
	timeout  time.Duration
	gatherer prometheus.Gatherer
}

func New(users ports.UserService, readings ports.ReadingsService, in io.Reader, out io.Writer, log zerolog.Logger, opts Options) *Console {
	types := opts.ReadingTypes
	if len(types) == 0 {
		types = domain.DefaultReadingTypes
	}
	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Console{
		users:    users,
		readings: readings,
		log:      log,
		in:       bufio.NewReader(in),
		out:      out,
		types:    types,
		timeout:  timeout,
		gatherer: gatherer,
	}
}

// Run serves the main menu until the user exits, input ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.println("\nTo log in press 1\nTo register press 2\nTo exit press 3")

		choice, err := c.readLine("")
		if err != nil {
			return c.endOfInput(err)
		}

		switch choice {
		case "1":
			err = c.login(ctx)
		case "2":
			err = c.register(ctx)
		case "3":
			c.println("Goodbye!")
			return nil
		default:
			c.println("Unknown option.")
		}
		if err != nil {
			return c.endOfInput(err)
		}
	}
}

func (c *Console) login(ctx context.Context) error {
	login, err := c.readLine("Enter your login: ")
	if err != nil {
		return err
	}
	password, err := c.readLine("Enter your password: ")
	if err != nil {
		return err
	}

	actx, cancel := c.action(ctx)
	user, ok, err := c.users.Authenticate(actx, strings.TrimSpace(login), password)
	cancel()
	if err != nil {
		c.report(err)
		return nil
	}
	if !ok {
		c.println("Wrong login or password.")
		return nil
	}

	c.printf("Welcome, %s!\n", user.Login)
	if user.IsAdmin() {
		return c.adminMenu(ctx, user)
	}
	return c.userMenu(ctx, user)
}

func (c *Console) register(ctx context.Context) error {
	login, err := c.readLine("Choose a login: ")
	if err != nil {
		return err
	}
	password, err := c.readLine("Choose a password: ")
	if err != nil {
		return err
	}

	actx, cancel := c.action(ctx)
	_, err = c.users.Register(actx, strings.TrimSpace(login), password)
	cancel()
	if err != nil {
		c.report(err)
		return nil
	}
	c.println("You have registered successfully.")
	return nil
}

// ---------------------------------------------------------------------------
// User menu
// ---------------------------------------------------------------------------

func (c *Console) userMenu(ctx context.Context, user domain.User) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.println("\nTo submit readings press 1\n" +
			"To view your last readings press 2\n" +
			"To view readings for a month press 3\n" +
			"To view your submission history press 4\n" +
			"To change your password press 5\n" +
			"To log out press 6")

		choice, err := c.readLine("")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = c.submitReadings(ctx, user)
		case "2":
			c.lastReadings(ctx, user)
		case "3":
			err = c.readingsByMonth(ctx, user)
		case "4":
			c.history(ctx, user)
		case "5":
			user, err = c.changePassword(ctx, user)
		case "6":
			c.log.Info().Str("login", user.Login).Msg("user logged out")
			return nil
		default:
			c.println("Unknown option.")
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) submitReadings(ctx context.Context, user domain.User) error {
	line, err := c.readLine("Enter the month number (1-12): ")
	if err != nil {
		return err
	}
	month, err := domain.ParseMonth(line)
	if err != nil {
		c.report(err)
		return nil
	}

	readings := make(domain.Readings, len(c.types))
	for _, typ := range c.types {
		line, err := c.readLine(typ + " reading: ")
		if err != nil {
			return err
		}
		v, ok := parseValue(line)
		if !ok {
			c.println("Invalid value. Please enter numbers.")
			return nil
		}
		readings[typ] = v
	}

	actx, cancel := c.action(ctx)
	err = c.readings.AddReadings(actx, user, month, readings)
	cancel()
	if err != nil {
		c.report(err)
		return nil
	}
	c.println("Readings submitted successfully.")
	return nil
}

func (c *Console) lastReadings(ctx context.Context, user domain.User) {
	actx, cancel := c.action(ctx)
	last, ok, err := c.readings.GetLastReadings(actx, user)
	cancel()
	if err != nil {
		c.report(err)
		return
	}
	if !ok {
		c.println("You have not submitted any readings.")
		return
	}
	c.println(formatSubmission(last))
}

func (c *Console) readingsByMonth(ctx context.Context, user domain.User) error {
	line, err := c.readLine("Enter the month number (1-12): ")
	if err != nil {
		return err
	}
	month, err := domain.ParseMonth(line)
	if err != nil {
		c.report(err)
		return nil
	}

	actx, cancel := c.action(ctx)
	readings, ok, err := c.readings.GetReadingsByMonth(actx, user, month)
	cancel()
	if err != nil {
		c.report(err)
		return nil
	}
	if !ok {
		c.println("You have not submitted readings for this month.")
		return nil
	}
	c.println(formatSubmission(domain.Submission{Month: month, Readings: readings}))
	return nil
}

func (c *Console) history(ctx context.Context, user domain.User) {
	actx, cancel := c.action(ctx)
	history, err := c.readings.GetAllReadings(actx, user)
	cancel()
	if err != nil {
		c.report(err)
		return
	}
	if history.Empty() {
		c.println("No readings found.")
		return
	}
	for _, s := range history {
		c.println(formatSubmission(s))
	}
}

func (c *Console) changePassword(ctx context.Context, user domain.User) (domain.User, error) {
	oldPassword, err := c.readLine("Enter your old password: ")
	if err != nil {
		return user, err
	}
	newPassword, err := c.readLine("Enter a new password: ")
	if err != nil {
		return user, err
	}

	actx, cancel := c.action(ctx)
	updated, err := c.users.ChangePassword(actx, user, oldPassword, newPassword)
	cancel()
	if err != nil {
		c.report(err)
		return user, nil
	}
	c.println("Password changed successfully.")
	return updated, nil
}

// ---------------------------------------------------------------------------
// Admin menu
// ---------------------------------------------------------------------------

func (c *Console) adminMenu(ctx context.Context, admin domain.User) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.println("\nTo view a user's readings press 1\nTo view statistics press 2\nTo log out press 3")

		choice, err := c.readLine("")
		if err != nil {
			return err
		}

		switch choice {
		case "1":
			err = c.inspectUser(ctx, admin)
		case "2":
			c.statistics()
		case "3":
			c.log.Info().Str("login", admin.Login).Msg("admin logged out")
			return nil
		default:
			c.println("Unknown option.")
		}
		if err != nil {
			return err
		}
	}
}

func (c *Console) inspectUser(ctx context.Context, admin domain.User) error {
	actx, cancel := c.action(ctx)
	logins, err := c.users.ListLogins(actx)
	cancel()
	if err != nil {
		c.report(err)
		return nil
	}
	c.printf("Users: %s\n", strings.Join(logins, ", "))

	login, err := c.readLine("Enter the login of the user: ")
	if err != nil {
		return err
	}

	actx, cancel = c.action(ctx)
	defer cancel()
	user, ok, err := c.users.GetUserForAdmin(actx, strings.TrimSpace(login), admin)
	if err != nil {
		c.report(err)
		return nil
	}
	if !ok {
		c.println("No such user.")
		return nil
	}

	history, err := c.readings.GetAllReadings(actx, user)
	if err != nil {
		c.report(err)
		return nil
	}
	if history.Empty() {
		c.println("No readings found.")
		return nil
	}
	for _, s := range history {
		c.println(formatSubmission(s))
	}
	return nil
}

func (c *Console) statistics() {
	lines, err := metrics.Summary(c.gatherer)
	if err != nil {
		c.report(err)
		return
	}
	if len(lines) == 0 {
		c.println("No statistics yet.")
		return
	}
	for _, l := range lines {
		c.println(l)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// report prints the message for err. Faults the user cannot fix are logged.
func (c *Console) report(err error) {
	c.println(c.message(err))
}

func (c *Console) message(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidMonth):
		return "Invalid month number. Please enter a number from 1 to 12."
	case errors.Is(err, domain.ErrValidation):
		return "Invalid input: " + strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
	case errors.Is(err, domain.ErrUnauthorized):
		return "Wrong old password."
	case errors.Is(err, domain.ErrUserExists):
		return "This login already exists."
	case errors.Is(err, domain.ErrAlreadySubmitted):
		return "Readings for this month have already been submitted."
	case errors.Is(err, domain.ErrSubmissionInProgress):
		return "A submission for this month is already in progress, try again shortly."
	case errors.Is(err, domain.ErrStorage), errors.Is(err, context.DeadlineExceeded):
		c.log.Error().Err(err).Msg("storage failure")
		return "Storage is unavailable, please try again later."
	}

	c.log.Error().Err(err).Msg("unhandled error")
	return "Something went wrong, please try again."
}

func (c *Console) action(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// readLine prints prompt and returns the next input line without its line ending.
// A line over maxLineBytes is rejected and the prompt is shown again.
func (c *Console) readLine(prompt string) (string, error) {
	for {
		if prompt != "" {
			_, _ = io.WriteString(c.out, prompt)
		}
		line, tooLong, err := c.nextLine()
		if err != nil {
			return "", err
		}
		if tooLong {
			c.printf("Input is too long (max %d bytes), please try again.\n", maxLineBytes)
			continue
		}
		return strings.TrimRight(line, "\r"), nil
	}
}

// nextLine reads up to the next newline, keeping at most maxLineBytes of it.
func (c *Console) nextLine() (string, bool, error) {
	var (
		buf     []byte
		tooLong bool
		started bool
	)
	for {
		chunk, isPrefix, err := c.in.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && started {
				break
			}
			if errors.Is(err, io.EOF) {
				return "", false, io.EOF
			}
			return "", false, fmt.Errorf("read input: %w", err)
		}
		started = true
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			break
		}
	}
	return string(buf), tooLong, nil
}

func (c *Console) endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		c.log.Info().Msg("input closed")
		return nil
	}
	return err
}

func (c *Console) println(s string) {
	_, _ = fmt.Fprintln(c.out, s)
}

func (c *Console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func parseValue(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatSubmission(s domain.Submission) string {
	return fmt.Sprintf("%s: %s", s.Month, s.Readings)
}
