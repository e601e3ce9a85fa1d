//go:build integration

package integration

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/chronos/internal/api"
	"github.com/eliteGoblin/focusd/chronos/internal/daemon"
	"github.com/eliteGoblin/focusd/chronos/internal/domain"
	"github.com/eliteGoblin/focusd/chronos/internal/infra"
	"github.com/eliteGoblin/focusd/chronos/internal/usecase"
	"github.com/eliteGoblin/focusd/chronos/test/fixtures"
)

const (
	sampleEvery   = 15 * time.Second
	idleThreshold = 180 * time.Second
	mergeWindow   = 300 * time.Second
)

var _ = Describe("Tracker", func() {
	for _, encrypted := range []bool{false, true} {
		mode := "plain store"
		if encrypted {
			mode = "encrypted store"
		}

		Context("with a "+mode, func() {
			var (
				tmpDir    string
				store     *infra.SQLiteActivityStore
				directory *infra.FileCategoryDirectory
				clock     *fixtures.FakeClock
				desktop   *fixtures.Desktop
				recorder  *usecase.RecorderImpl
				service   *usecase.Service
				ctx       context.Context
			)

			BeforeEach(func() {
				var err error
				ctx = context.Background()
				tmpDir, err = os.MkdirTemp("", "chronos-integration-*")
				Expect(err).NotTo(HaveOccurred())

				var key []byte
				if encrypted {
					key, err = infra.EnsureKey(infra.NewFileKeyProvider(tmpDir))
					Expect(err).NotTo(HaveOccurred())
				}
				store, err = infra.OpenActivityStore(filepath.Join(tmpDir, "chronos.db"), key, zap.NewNop())
				Expect(err).NotTo(HaveOccurred())

				directory = infra.OpenCategoryDirectory(filepath.Join(tmpDir, "categories.json"), zap.NewNop())
				clock = fixtures.NewFakeClock(time.Date(2026, 10, 14, 9, 0, 0, 0, time.Local))
				desktop = fixtures.NewDesktop("Code", "main.go - chronos")
				recorder = usecase.NewRecorder(desktop, desktop, store, clock, idleThreshold, mergeWindow, zap.NewNop())

				stats := usecase.NewStatsAggregator(store, directory, clock, zap.NewNop())
				service = usecase.NewService(store, directory, stats, zap.NewNop())
			})

			AfterEach(func() {
				store.Close()
				os.RemoveAll(tmpDir)
			})

			tick := func() *domain.TickResult {
				res, err := recorder.Tick(ctx)
				Expect(err).NotTo(HaveOccurred())
				return res
			}

			// work advances the clock one sample period with input, then samples.
			work := func(samples int) {
				for i := 0; i < samples; i++ {
					clock.Advance(sampleEvery)
					desktop.Move()
					tick()
				}
			}

			today := func() []domain.Activity {
				acts, err := service.ActivitiesForDay(ctx, clock.Now())
				Expect(err).NotTo(HaveOccurred())
				return acts
			}

			Describe("sampling", func() {
				It("should merge consecutive samples of one window into one interval", func() {
					desktop.Move()
					Expect(tick().Merged).To(BeFalse())
					work(4)

					acts := today()
					Expect(acts).To(HaveLen(1))
					Expect(acts[0].Application).To(Equal("Code"))
					Expect(acts[0].DurationSeconds()).To(Equal(int64(60)))
					Expect(acts[0].IsIdle).To(BeFalse())
				})

				It("should start a new interval when focus moves to another application", func() {
					tick()
					work(2)
					desktop.Focus("Slack", "general")
					work(2)

					acts := today()
					Expect(acts).To(HaveLen(2))
					Expect(acts[0].Application).To(Equal("Slack"))
					Expect(acts[0].DurationSeconds()).To(Equal(int64(15)))
					Expect(acts[1].Application).To(Equal("Code"))
					Expect(acts[1].DurationSeconds()).To(Equal(int64(30)))
				})

				It("should record idle time separately once input stops", func() {
					desktop.Move()
					tick()
					for i := 0; i < 13; i++ {
						clock.Advance(sampleEvery)
						tick()
					}

					acts := today()
					Expect(acts).To(HaveLen(2))
					Expect(acts[0].IsIdle).To(BeTrue())
					Expect(acts[0].DurationSeconds()).To(Equal(int64(15)))
					Expect(acts[1].IsIdle).To(BeFalse())
					Expect(acts[1].DurationSeconds()).To(Equal(int64(165)))
				})

				It("should split an interval at midnight", func() {
					clock = fixtures.NewFakeClock(time.Date(2026, 10, 14, 23, 59, 30, 0, time.Local))
					recorder = usecase.NewRecorder(desktop, desktop, store, clock, idleThreshold, mergeWindow, zap.NewNop())

					desktop.Move()
					tick()
					work(3)

					before, err := service.ActivitiesForDay(ctx, time.Date(2026, 10, 14, 12, 0, 0, 0, time.Local))
					Expect(err).NotTo(HaveOccurred())
					after, err := service.ActivitiesForDay(ctx, time.Date(2026, 10, 15, 12, 0, 0, 0, time.Local))
					Expect(err).NotTo(HaveOccurred())

					Expect(before).To(HaveLen(1))
					Expect(before[0].DurationSeconds()).To(Equal(int64(15)))
					Expect(after).To(HaveLen(1))
					Expect(after[0].StartTime.Hour()).To(Equal(0))
					Expect(after[0].DurationSeconds()).To(Equal(int64(15)))
				})

				It("should skip samples when nothing has focus", func() {
					desktop.Blur()
					Expect(tick().Skipped).To(BeTrue())
					Expect(today()).To(BeEmpty())
				})

				It("should surface platform failures without writing", func() {
					desktop.FailWith(errors.New("display unavailable"))
					_, err := recorder.Tick(ctx)
					Expect(err).To(HaveOccurred())
					Expect(today()).To(BeEmpty())
				})
			})

			Describe("statistics", func() {
				It("should report productive time against the daily goal", func() {
					desktop.Move()
					tick()
					work(8)
					desktop.Focus("YouTube", "video")
					work(4)

					cats, err := service.Categories(ctx)
					Expect(err).NotTo(HaveOccurred())
					for _, c := range cats {
						switch c.Name {
						case "Development":
							Expect(service.SetAppCategory(ctx, "Code", c.ID)).To(Succeed())
						case "Entertainment":
							Expect(service.SetAppCategory(ctx, "YouTube", c.ID)).To(Succeed())
						}
					}
					Expect(service.SetDailyGoal(ctx, 4)).To(Succeed())

					stats, err := service.DailyStats(ctx, clock.Now())
					Expect(err).NotTo(HaveOccurred())
					Expect(stats.TotalTime).To(Equal(int64(165)))
					Expect(stats.ProductiveTime).To(Equal(int64(120)))
					Expect(stats.GoalPercentage).To(Equal(int64(50)))
					Expect(stats.TopApplications[0].Application).To(Equal("Code"))

					uncategorized, err := service.UncategorizedApps(ctx)
					Expect(err).NotTo(HaveOccurred())
					Expect(uncategorized).To(BeEmpty())
				})
			})

			Describe("running daemon", func() {
				It("should sample in the background and serve today's summary", func() {
					metrics := daemon.NewMetrics(prometheus.NewRegistry())
					sampler := daemon.NewSampler(daemon.SamplerConfig{
						SampleInterval:    10 * time.Millisecond,
						HeartbeatInterval: 10 * time.Millisecond,
					}, recorder, infra.NewFileRegistry(tmpDir, infra.NewProcessInspector()),
						domain.DaemonInfo{PID: os.Getpid()}, metrics, zap.NewNop())

					runCtx, cancel := context.WithCancel(ctx)
					done := make(chan error, 1)
					go func() { done <- sampler.Run(runCtx) }()

					Eventually(today).Should(HaveLen(1))

					server := api.NewServer(api.DefaultServerConfig(), service, nil, nil, clock, zap.NewNop())
					ts := httptest.NewServer(server.Handler())
					defer ts.Close()

					client := api.NewClient(ts.URL)
					summary, err := client.TodaySummary(ctx)
					Expect(err).NotTo(HaveOccurred())
					Expect(summary.Title).To(Equal("0%"))
					Expect(summary.TrackedLabel).To(Equal("Tracked: 0m"))

					cancel()
					Eventually(done).Should(Receive(MatchError(context.Canceled)))
				})
			})
		})
	}
})
