package distribution

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"profit-distribution-go/internal/database"
	"profit-distribution-go/internal/models"
	"profit-distribution-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var origin = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	t       *testing.T
	path    string
	service *database.Service
	schema  models.InvestmentSchema
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "distribution.db")
	service, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         path,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(service.Close)

	schema := models.InvestmentSchema{
		Id:           "growth-30",
		Name:         "Growth",
		DailyRate:    decimal.RequireFromString("2.0"),
		DurationDays: 30,
		MinAmount:    decimal.NewFromInt(100),
		MaxAmount:    decimal.NewFromInt(10000),
		TotalReturn:  decimal.RequireFromString("0.60"),
		Active:       true,
	}
	require.NoError(t, service.UpsertSchema(context.Background(), schema))

	return &fixture{t: t, path: path, service: service, schema: schema}
}

func (f *fixture) user(n int) *models.User {
	f.t.Helper()
	user, err := f.service.CreateUser(context.Background(),
		fmt.Sprintf("user-%d", n), fmt.Sprintf("User %d", n), fmt.Sprintf("user%d@example.com", n))
	require.NoError(f.t, err)
	return user
}

func (f *fixture) invest(userId string, amount int64, createdAt time.Time) *models.Investment {
	f.t.Helper()
	inv, err := f.service.CreateInvestment(context.Background(), store.CreateInvestmentParams{
		UserId:    userId,
		SchemaId:  f.schema.Id,
		Amount:    decimal.NewFromInt(amount),
		CreatedAt: createdAt,
	})
	require.NoError(f.t, err)
	return inv
}

func (f *fixture) setLocked(locked bool) {
	f.t.Helper()
	value := "0"
	if locked {
		value = "1"
	}
	require.NoError(f.t, f.service.SetSetting(context.Background(), models.SettingProfitDistributionLocked, value))
}

func (f *fixture) runAt(now time.Time, opts Options) *models.RunSummary {
	f.t.Helper()
	opts.Clock = func() time.Time { return now }
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	summary, err := NewDistributor(f.service, opts).Run(context.Background())
	require.NoError(f.t, err)
	return summary
}

func (f *fixture) reload(userId, investmentId string) (*models.User, *models.Investment) {
	f.t.Helper()
	user, err := f.service.GetUserById(context.Background(), userId)
	require.NoError(f.t, err)
	inv, err := f.service.GetInvestment(context.Background(), investmentId)
	require.NoError(f.t, err)
	return user, inv
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: expected %s, got %s", field, want, got)
}

func TestRun_LockedModeAccruesThenReleasesAtMaturity(t *testing.T) {
	f := newFixture(t)
	f.setLocked(true)
	user := f.user(1)
	inv := f.invest(user.Id, 1000, origin)

	for day := 1; day <= 3; day++ {
		summary := f.runAt(origin.Add(time.Duration(day)*24*time.Hour), Options{})
		require.Equal(t, 1, summary.Processed)
		assertDecimal(t, "20", summary.TotalDistributed, "run total")
	}

	got, _ := f.reload(user.Id, inv.Id)
	assertDecimal(t, "60", got.LockedBalance, "locked_balance")
	assertDecimal(t, "0", got.Balance, "balance")
	assertDecimal(t, "60", got.TotalEarned, "total_earned")

	summary := f.runAt(origin.Add(30*24*time.Hour), Options{})
	require.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Matured)
	assertDecimal(t, "20", summary.TotalDistributed, "run total")
	assertDecimal(t, "1000", summary.PrincipalReturned, "principal returned")

	got, completed := f.reload(user.Id, inv.Id)
	assertDecimal(t, "1080", got.Balance, "balance")
	assertDecimal(t, "0", got.LockedBalance, "locked_balance")
	assertDecimal(t, "80", got.TotalEarned, "total_earned")
	assert.Equal(t, models.InvestmentCompleted, completed.Status)
	assert.Nil(t, completed.NextProfitTime)
}

func TestRun_ImmediateModeCreditsBalance(t *testing.T) {
	f := newFixture(t)
	f.setLocked(false)
	user := f.user(1)
	inv := f.invest(user.Id, 1000, origin)

	for day := 1; day <= 3; day++ {
		f.runAt(origin.Add(time.Duration(day)*24*time.Hour), Options{})

		got, _ := f.reload(user.Id, inv.Id)
		assertDecimal(t, decimal.NewFromInt(int64(20*day)).String(), got.Balance, "balance")
		assertDecimal(t, "0", got.LockedBalance, "locked_balance")
	}

	f.runAt(origin.Add(30*24*time.Hour), Options{})

	got, _ := f.reload(user.Id, inv.Id)
	assertDecimal(t, "1080", got.Balance, "balance")
	assertDecimal(t, "80", got.TotalEarned, "total_earned")
}

func TestRun_MaturityHappensExactlyOnce(t *testing.T) {
	f := newFixture(t)
	user := f.user(1)
	inv := f.invest(user.Id, 1000, origin)

	maturity := origin.Add(30 * 24 * time.Hour)
	first := f.runAt(maturity, Options{})
	require.Equal(t, 1, first.Matured)

	for _, later := range []time.Time{maturity, maturity.Add(48 * time.Hour), maturity.Add(90 * 24 * time.Hour)} {
		summary := f.runAt(later, Options{})
		assert.Equal(t, 0, summary.Due)
		assert.Equal(t, 0, summary.Processed)
	}

	transactions, err := f.service.GetInvestmentTransactions(context.Background(), inv.Id)
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	types := []string{transactions[0].Type, transactions[1].Type}
	assert.ElementsMatch(t, []string{models.TransactionTypeProfit, models.TransactionTypePrincipalReturn}, types)

	got, _ := f.reload(user.Id, inv.Id)
	assertDecimal(t, "1020", got.Balance, "balance")
}

func TestRun_IdempotentWithinSameDay(t *testing.T) {
	f := newFixture(t)
	user := f.user(1)
	inv := f.invest(user.Id, 1000, origin)

	now := origin.Add(25 * time.Hour)
	first := f.runAt(now, Options{})
	require.Equal(t, 1, first.Processed)

	second := f.runAt(now.Add(time.Hour), Options{})
	assert.Equal(t, 0, second.Due)
	assert.Equal(t, 0, second.Processed)

	transactions, err := f.service.GetInvestmentTransactions(context.Background(), inv.Id)
	require.NoError(t, err)
	assert.Len(t, transactions, 1)

	_, got := f.reload(user.Id, inv.Id)
	require.NotNil(t, got.NextProfitTime)
	assert.True(t, got.NextProfitTime.Equal(origin.Add(48*time.Hour)),
		"next profit time should open the next elapsed-day window, got %v", got.NextProfitTime)
}

// tickingClock starts at base and moves forward by step on every read, like a
// run whose items are processed some time after the run started.
func tickingClock(base time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	calls := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := base.Add(time.Duration(calls) * step)
		calls++
		return now
	}
}

func TestRun_DailyScheduleWithSlowItemsPaysEveryDay(t *testing.T) {
	f := newFixture(t)
	f.setLocked(false)
	user := f.user(1)
	inv := f.invest(user.Id, 1000, origin)

	processed := 0
	for k := 0; k <= f.schema.DurationDays; k++ {
		distributor := NewDistributor(f.service, Options{
			Out:   io.Discard,
			Clock: tickingClock(origin.Add(time.Duration(k)*24*time.Hour), time.Second),
		})
		summary, err := distributor.Run(context.Background())
		require.NoError(t, err)
		processed += summary.Processed
	}

	assert.Equal(t, f.schema.DurationDays, processed)

	transactions, err := f.service.GetInvestmentTransactions(context.Background(), inv.Id)
	require.NoError(t, err)
	profits := 0
	for _, tx := range transactions {
		if tx.Type == models.TransactionTypeProfit {
			profits++
		}
	}
	assert.Equal(t, f.schema.DurationDays, profits)

	got, completed := f.reload(user.Id, inv.Id)
	assert.Equal(t, models.InvestmentCompleted, completed.Status)
	assertDecimal(t, "600", completed.TotalProfitAmount, "total_profit_amount")
	assertDecimal(t, "1600", got.Balance, "balance")
	assertDecimal(t, "600", got.TotalEarned, "total_earned")
}

func TestRun_DelaysAfterEverySuccessfulItem(t *testing.T) {
	f := newFixture(t)
	user := f.user(1)
	f.invest(user.Id, 1000, origin)

	started := time.Now()
	summary := f.runAt(origin.Add(25*time.Hour), Options{ItemDelay: 40 * time.Millisecond})
	require.Equal(t, 1, summary.Processed)

	assert.GreaterOrEqual(t, time.Since(started), 40*time.Millisecond)
}

func TestRun_MissedDaysCatchUpByElapsedTime(t *testing.T) {
	f := newFixture(t)
	user := f.user(1)
	inv := f.invest(user.Id, 1000, origin)

	// No runs for a week: a single credit is made and the day number reflects elapsed time
	f.runAt(origin.Add(7*24*time.Hour), Options{})

	transactions, err := f.service.GetInvestmentTransactions(context.Background(), inv.Id)
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Contains(t, transactions[0].Description, "(day 8)")
}

// faultyStore fails ApplyProfit for one investment after its profit row was written.
type faultyStore struct {
	store.DistributionStore
	failInvestment string
}

func (s *faultyStore) WithinTx(ctx context.Context, fn func(tx store.LedgerTx) error) error {
	return s.DistributionStore.WithinTx(ctx, func(tx store.LedgerTx) error {
		return fn(&faultyTx{LedgerTx: tx, failInvestment: s.failInvestment})
	})
}

type faultyTx struct {
	store.LedgerTx
	failInvestment string
	current        string
}

func (t *faultyTx) RecordProfit(ctx context.Context, userId string, amount decimal.Decimal, investmentId string, profitDay int, at time.Time) (*models.Transaction, error) {
	t.current = investmentId
	return t.LedgerTx.RecordProfit(ctx, userId, amount, investmentId, profitDay, at)
}

func (t *faultyTx) ApplyProfit(ctx context.Context, userId string, amount decimal.Decimal, mode models.DistributionMode) error {
	if t.current == t.failInvestment {
		return errors.New("disk I/O error")
	}
	return t.LedgerTx.ApplyProfit(ctx, userId, amount, mode)
}

func TestRun_FailureIsolation(t *testing.T) {
	f := newFixture(t)

	var users []*models.User
	var investments []*models.Investment
	for i := 0; i < 5; i++ {
		user := f.user(i)
		users = append(users, user)
		investments = append(investments, f.invest(user.Id, 1000, origin.Add(time.Duration(i)*time.Minute)))
	}
	broken := investments[2]

	now := origin.Add(26 * time.Hour)
	var out bytes.Buffer
	distributor := NewDistributor(&faultyStore{DistributionStore: f.service, failInvestment: broken.Id}, Options{
		Out:   &out,
		Clock: func() time.Time { return now },
	})

	summary, err := distributor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Due)
	assert.Equal(t, 4, summary.Processed)
	assert.Equal(t, 1, summary.Errors)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, broken.Id, summary.Failures[0].InvestmentId)
	assertDecimal(t, "80", summary.TotalDistributed, "run total")

	itemErrors := distributor.ItemErrors()
	require.Len(t, itemErrors, 1)
	assert.Equal(t, broken.Id, itemErrors[0].InvestmentId)
	assert.Contains(t, out.String(), broken.Id)

	// The failed investment and its owner are untouched
	user, inv := f.reload(users[2].Id, broken.Id)
	assertDecimal(t, "0", user.Balance, "balance")
	assertDecimal(t, "0", user.TotalEarned, "total_earned")
	assertDecimal(t, "0", inv.TotalProfitAmount, "total_profit_amount")
	assert.Nil(t, inv.NextProfitTime)

	transactions, err := f.service.GetInvestmentTransactions(context.Background(), broken.Id)
	require.NoError(t, err)
	assert.Empty(t, transactions)

	// Items after the failure were still processed
	for _, i := range []int{3, 4} {
		user, _ := f.reload(users[i].Id, investments[i].Id)
		assertDecimal(t, "20", user.Balance, "balance")
	}

	// It is picked up again by the next run
	retry := f.runAt(now.Add(time.Minute), Options{})
	assert.Equal(t, 1, retry.Processed)
}

func TestRun_SchemaNotFoundIsItemError(t *testing.T) {
	f := newFixture(t)
	user := f.user(1)
	orphan := f.invest(user.Id, 1000, origin)
	healthy := f.invest(user.Id, 1000, origin.Add(time.Minute))

	db, err := sql.Open("sqlite3", f.path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec("UPDATE investments SET schema_id = 'retired-plan' WHERE id = ?", orphan.Id)
	require.NoError(t, err)

	distributor := NewDistributor(f.service, Options{
		Out:   io.Discard,
		Clock: func() time.Time { return origin.Add(30 * time.Hour) },
	})
	summary, err := distributor.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Errors)

	itemErrors := distributor.ItemErrors()
	require.Len(t, itemErrors, 1)
	assert.Equal(t, orphan.Id, itemErrors[0].InvestmentId)
	assert.True(t, errors.Is(itemErrors[0], store.ErrSchemaNotFound))

	_, got := f.reload(user.Id, healthy.Id)
	assertDecimal(t, "20", got.TotalProfitAmount, "total_profit_amount")
}

func TestRun_ConservationAfterMaturity(t *testing.T) {
	f := newFixture(t)
	f.setLocked(true)
	user := f.user(1)
	first := f.invest(user.Id, 1000, origin)
	second := f.invest(user.Id, 2500, origin.Add(time.Hour))

	for day := 1; day <= 31; day += 3 {
		f.runAt(origin.Add(time.Duration(day)*24*time.Hour+2*time.Hour), Options{})
	}

	completed, err := f.service.GetCompletedInvestments(context.Background())
	require.NoError(t, err)
	require.Len(t, completed, 2)

	for _, inv := range []*models.Investment{first, second} {
		assert.NoError(t, f.service.ReconcileInvestment(context.Background(), inv.Id))
	}

	got, _ := f.reload(user.Id, first.Id)
	assertDecimal(t, "0", got.LockedBalance, "locked_balance")
	assert.True(t, got.Balance.Equal(got.TotalEarned.Add(dec("3500"))),
		"balance %s should equal earned %s plus principal", got.Balance, got.TotalEarned)
}

func TestRun_ModeReadPerItem(t *testing.T) {
	f := newFixture(t)
	user := f.user(1)
	f.invest(user.Id, 1000, origin)
	f.invest(user.Id, 1000, origin.Add(time.Minute))

	// The mirror flips the flag after the first commit
	flipper := &recordingMirror{onEvent: func() { f.setLocked(true) }}
	f.runAt(origin.Add(26*time.Hour), Options{Mirror: flipper})

	require.Len(t, flipper.events, 2)
	assert.Equal(t, models.ModeImmediate, flipper.events[0].Mode)
	assert.Equal(t, models.ModeLocked, flipper.events[1].Mode)

	got, err := f.service.GetUserById(context.Background(), user.Id)
	require.NoError(t, err)
	assertDecimal(t, "20", got.Balance, "balance")
	assertDecimal(t, "20", got.LockedBalance, "locked_balance")
}

type recordingMirror struct {
	mu      sync.Mutex
	events  []models.DistributionEvent
	err     error
	onEvent func()
}

func (m *recordingMirror) MirrorDistribution(_ context.Context, event models.DistributionEvent) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	if m.onEvent != nil {
		m.onEvent()
	}
	return m.err
}

func TestRun_MirrorReceivesMaturityRelease(t *testing.T) {
	f := newFixture(t)
	f.setLocked(true)
	user := f.user(1)
	f.invest(user.Id, 1000, origin)

	mirror := &recordingMirror{}
	for _, day := range []int{1, 2, 30} {
		f.runAt(origin.Add(time.Duration(day)*24*time.Hour), Options{Mirror: mirror})
	}

	require.Len(t, mirror.events, 3)
	last := mirror.events[2]
	assert.True(t, last.Matured)
	assert.Equal(t, 31, last.ProfitDay)
	assertDecimal(t, "40", last.ReleasedLocked, "released locked")
	assertDecimal(t, "1000", last.Principal, "principal")
}

func TestRun_MirrorFailureDoesNotUndoCommit(t *testing.T) {
	f := newFixture(t)
	user := f.user(1)
	inv := f.invest(user.Id, 1000, origin)

	mirror := &recordingMirror{err: errors.New("ledger unavailable")}
	summary := f.runAt(origin.Add(25*time.Hour), Options{Mirror: mirror})

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 0, summary.Errors)

	_, got := f.reload(user.Id, inv.Id)
	assertDecimal(t, "20", got.TotalProfitAmount, "total_profit_amount")
}

type failingStore struct {
	store.DistributionStore
}

func (failingStore) FindDueForDistribution(context.Context, time.Time) ([]models.Investment, error) {
	return nil, errors.New("unable to open database file")
}

func TestRun_FatalSetupFailure(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "run.log")
	distributor := NewDistributor(failingStore{}, Options{Out: io.Discard, RunLogFile: logPath})

	summary, err := distributor.Run(context.Background())

	assert.Nil(t, summary)
	assert.True(t, errors.Is(err, ErrFatalSetup))
	_, statErr := os.Stat(logPath)
	assert.True(t, os.IsNotExist(statErr), "no run log line on fatal setup failure")
}

func TestRun_ZeroWorkStillReportsAndLogs(t *testing.T) {
	f := newFixture(t)
	logPath := filepath.Join(t.TempDir(), "profit_distribution.log")

	var out bytes.Buffer
	summary := f.runAt(origin, Options{Out: &out, RunLogFile: logPath})

	assert.Equal(t, 0, summary.Due)
	assert.Contains(t, out.String(), "Processed 0/0 investments")

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01 12:00:00 - Profits distributed: 0 investments, $0.00 total\n", string(contents))
}

func TestRun_ConcurrentRunsDoNotDoubleCredit(t *testing.T) {
	f := newFixture(t)
	var investments []*models.Investment
	for i := 0; i < 6; i++ {
		user := f.user(i)
		investments = append(investments, f.invest(user.Id, 1000, origin.Add(time.Duration(i)*time.Second)))
	}

	now := origin.Add(25 * time.Hour)
	summaries := make([]*models.RunSummary, 2)
	var wg sync.WaitGroup
	for i := range summaries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			distributor := NewDistributor(f.service, Options{
				Out:   io.Discard,
				Clock: func() time.Time { return now },
			})
			summary, err := distributor.Run(context.Background())
			assert.NoError(t, err)
			summaries[i] = summary
		}(i)
	}
	wg.Wait()

	require.NotNil(t, summaries[0])
	require.NotNil(t, summaries[1])
	assert.Equal(t, 6, summaries[0].Processed+summaries[1].Processed)
	assert.Equal(t, 0, summaries[0].Errors+summaries[1].Errors)

	for _, inv := range investments {
		transactions, err := f.service.GetInvestmentTransactions(context.Background(), inv.Id)
		require.NoError(t, err)
		assert.Len(t, transactions, 1, "investment %s", inv.Id)
	}
}

func TestRun_CancellationStopsBetweenItems(t *testing.T) {
	f := newFixture(t)
	user := f.user(1)
	for i := 0; i < 3; i++ {
		f.invest(user.Id, 1000, origin.Add(time.Duration(i)*time.Minute))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mirror := &recordingMirror{onEvent: cancel}
	distributor := NewDistributor(f.service, Options{
		Out:    io.Discard,
		Mirror: mirror,
		Clock:  func() time.Time { return origin.Add(25 * time.Hour) },
	})

	summary, err := distributor.Run(ctx)

	assert.True(t, errors.Is(err, context.Canceled))
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 3, summary.Due)
}

func TestFormatRunLogLine(t *testing.T) {
	summary := &models.RunSummary{
		FinishedAt:       time.Date(2025, 6, 2, 0, 5, 9, 0, time.UTC),
		Processed:        4,
		Errors:           1,
		TotalDistributed: dec("81.255"),
	}

	line := FormatRunLogLine(summary)

	assert.Equal(t, "2025-06-02 00:05:09 - Profits distributed: 4 investments, $81.26 total, 1 errors", line)
	assert.False(t, strings.HasSuffix(FormatRunLogLine(&models.RunSummary{FinishedAt: summary.FinishedAt}), "errors"))
}

func TestAppendRunLog_ConcurrentWritersProduceWholeLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			summary := &models.RunSummary{FinishedAt: origin, Processed: i, TotalDistributed: decimal.NewFromInt(int64(i))}
			assert.NoError(t, AppendRunLog(path, summary))
		}(i)
	}
	wg.Wait()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(contents), "\n"), "\n")
	require.Len(t, lines, 10)
	for _, line := range lines {
		assert.True(t, strings.HasPrefix(line, "2025-06-01 12:00:00 - Profits distributed: "), line)
		assert.True(t, strings.HasSuffix(line, " total"), line)
	}
}
