package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	service "github.com/okian/kira/internal/app"
	"github.com/okian/kira/internal/adapters/repository"
	"github.com/okian/kira/internal/domain/model"
	"github.com/okian/kira/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init(logger.WithLevel("error"))
	if err != nil {
		panic(err)
	}
}

var now = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newService(opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithClock(func() time.Time { return now }),
		service.WithLogger(logger.Nop()),
	}
	return service.New(append(base, opts...)...)
}

func event(id, user string, p model.Platform, a model.Action) model.EngagementEvent {
	return model.EngagementEvent{
		SourceEventID: id,
		UserID:        user,
		Username:      user,
		Platform:      p,
		Action:        a,
		OccurredAt:    now,
	}
}

func TestService_Ingest(t *testing.T) {
	Convey("Given a new service", t, func() {
		ctx := context.Background()
		svc := newService()

		Convey("When a user sends three telegram messages and one invite", func() {
			for i := 0; i < 3; i++ {
				_, err := svc.Ingest(ctx, event(fmt.Sprintf("msg-%d", i), "u", model.PlatformTelegram, model.ActionMessage))
				So(err, ShouldBeNil)
			}
			res, err := svc.Ingest(ctx, event("inv-1", "u", model.PlatformTelegram, model.ActionInvite))

			Convey("Then the score should be 13, bronze, with an airdrop of 1", func() {
				So(err, ShouldBeNil)
				So(res.Admitted, ShouldBeTrue)
				So(res.Outcome, ShouldEqual, model.OutcomeAdmitted)
				So(res.Score.TotalScore, ShouldEqual, 13)
				So(res.Score.Tier, ShouldEqual, model.TierBronze)
				So(res.Score.AirdropEligible, ShouldEqual, 1)
				So(res.Score.Platforms[model.PlatformTelegram], ShouldEqual, 13)
			})
		})

		Convey("When a sole user gets a twitter reply and like", func() {
			_, _ = svc.Ingest(ctx, event("t-1", "u", model.PlatformTwitter, model.ActionReply))
			_, _ = svc.Ingest(ctx, event("t-2", "u", model.PlatformTwitter, model.ActionLike))
			top, err := svc.Rank(ctx, 1)

			Convey("Then the total should be 25 and the user should rank first", func() {
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 1)
				So(top[0].UserID, ShouldEqual, "u")
				So(top[0].TotalScore, ShouldEqual, 25)
				So(top[0].Rank, ShouldEqual, 1)
			})
		})

		Convey("When the same event is ingested twice", func() {
			first, _ := svc.Ingest(ctx, event("dup", "u", model.PlatformDiscord, model.ActionVoice))
			second, err := svc.Ingest(ctx, event("dup", "u", model.PlatformDiscord, model.ActionVoice))
			score, _ := svc.GetUserScore(ctx, "u")

			Convey("Then only the first should be admitted", func() {
				So(err, ShouldBeNil)
				So(first.Admitted, ShouldBeTrue)
				So(second.Admitted, ShouldBeFalse)
				So(second.Outcome, ShouldEqual, model.OutcomeDuplicate)
				So(second.Score, ShouldBeNil)
				So(score.TotalScore, ShouldEqual, 5)
			})
		})

		Convey("When the same id arrives again with surrounding spaces", func() {
			first, _ := svc.Ingest(ctx, event("pad", "u", model.PlatformDiscord, model.ActionVoice))
			second, err := svc.Ingest(ctx, event(" pad ", " u ", model.PlatformDiscord, model.ActionVoice))
			score, _ := svc.GetUserScore(ctx, "u")

			Convey("Then it should be treated as a duplicate of the trimmed id", func() {
				So(err, ShouldBeNil)
				So(first.Admitted, ShouldBeTrue)
				So(second.Outcome, ShouldEqual, model.OutcomeDuplicate)
				So(score.TotalScore, ShouldEqual, 5)
			})
		})

		Convey("When the same id arrives from two platforms", func() {
			a, _ := svc.Ingest(ctx, event("42", "u", model.PlatformTelegram, model.ActionMessage))
			b, _ := svc.Ingest(ctx, event("42", "u", model.PlatformDiscord, model.ActionMessage))

			Convey("Then both should count", func() {
				So(a.Admitted, ShouldBeTrue)
				So(b.Admitted, ShouldBeTrue)
				So(b.Score.TotalScore, ShouldEqual, 2)
			})
		})

		Convey("When an older event arrives after a newer one", func() {
			newer := event("n", "u", model.PlatformTelegram, model.ActionReaction)
			older := event("o", "u", model.PlatformTelegram, model.ActionReaction)
			older.OccurredAt = now.Add(-time.Hour)
			_, _ = svc.Ingest(ctx, newer)
			res, _ := svc.Ingest(ctx, older)

			Convey("Then it should score but leave lastActivity unchanged", func() {
				So(res.Admitted, ShouldBeTrue)
				So(res.Score.TotalScore, ShouldEqual, 4)
				So(res.Score.LastActivity, ShouldEqual, now)
			})
		})

		Convey("When the event has no timestamp", func() {
			e := event("no-ts", "u", model.PlatformTwitter, model.ActionMention)
			e.OccurredAt = time.Time{}
			res, _ := svc.Ingest(ctx, e)

			Convey("Then the service clock should be used", func() {
				So(res.Score.LastActivity, ShouldEqual, now)
			})
		})

		Convey("When the platform or action is unknown", func() {
			_, perr := svc.Ingest(ctx, event("x", "u", model.Platform("myspace"), model.ActionLike))
			_, aerr := svc.Ingest(ctx, event("y", "u", model.PlatformTwitter, model.Action("poke")))
			_, nerr := svc.GetUserScore(ctx, "u")

			Convey("Then it should be rejected without any state change", func() {
				So(errors.Is(perr, model.ErrInvalidEvent), ShouldBeTrue)
				So(errors.Is(aerr, model.ErrInvalidEvent), ShouldBeTrue)
				So(errors.Is(nerr, repository.ErrNotFound), ShouldBeTrue)
				So(svc.GetStats()["dedupeEntries"], ShouldEqual, int64(0))
			})
		})

		Convey("When a platform does not list the action", func() {
			r1, _ := svc.Ingest(ctx, event("c", "d", model.PlatformDiscord, model.ActionCommand))
			r2, _ := svc.Ingest(ctx, event("v", "t", model.PlatformTwitter, model.ActionVoice))

			Convey("Then the platform default weight should apply", func() {
				So(r1.Score.TotalScore, ShouldEqual, 1)
				So(r2.Score.TotalScore, ShouldEqual, 5)
			})
		})

		Convey("When a bonus is supplied", func() {
			tw := event("m", "a", model.PlatformTwitter, model.ActionMention)
			tw.RawMetricBonus = 80
			tg := event("m", "b", model.PlatformTelegram, model.ActionMessage)
			tg.RawMetricBonus = 80
			r1, _ := svc.Ingest(ctx, tw)
			r2, _ := svc.Ingest(ctx, tg)

			Convey("Then only twitter should add the capped bonus", func() {
				So(r1.Score.TotalScore, ShouldEqual, 60)
				So(r2.Score.TotalScore, ShouldEqual, 1)
			})
		})
	})
}

func TestService_Additivity(t *testing.T) {
	Convey("Given a batch of distinct events for one user", t, func() {
		ctx := context.Background()
		actions := []struct {
			p model.Platform
			a model.Action
			w int64
		}{
			{model.PlatformTwitter, model.ActionQuote, 25},
			{model.PlatformTwitter, model.ActionRetweet, 15},
			{model.PlatformTelegram, model.ActionCommand, 3},
			{model.PlatformDiscord, model.ActionInvite, 10},
			{model.PlatformDiscord, model.ActionReaction, 2},
		}
		var events []model.EngagementEvent
		var want int64
		for i := 0; i < 40; i++ {
			x := actions[i%len(actions)]
			e := event(fmt.Sprintf("e-%d", i), "u", x.p, x.a)
			e.OccurredAt = now.Add(-time.Duration(i) * time.Minute)
			events = append(events, e)
			want += x.w
		}

		Convey("When delivered in different orders", func() {
			totals := make([]int64, 0, 3)
			for seed := int64(1); seed <= 3; seed++ {
				svc := newService()
				shuffled := append([]model.EngagementEvent(nil), events...)
				rand.New(rand.NewSource(seed)).Shuffle(len(shuffled), func(i, j int) {
					shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
				})
				for _, e := range shuffled {
					_, _ = svc.Ingest(ctx, e)
				}
				s, _ := svc.GetUserScore(ctx, "u")
				totals = append(totals, s.TotalScore)

				var sum int64
				for _, v := range s.Platforms {
					sum += v
				}
				So(sum, ShouldEqual, s.TotalScore)
				So(s.LastActivity, ShouldEqual, now)
			}

			Convey("Then every order should give the same sum of weights", func() {
				So(totals, ShouldResemble, []int64{want, want, want})
			})
		})
	})
}

func TestService_TierCounts(t *testing.T) {
	Convey("Given 20 users scoring 0 to 9500 in steps of 500", t, func() {
		ctx := context.Background()
		svc := newService(service.WithWeights(map[string]map[string]int{
			"twitter": {"like": 500, "voice": 0},
		}, nil))
		for u := 0; u < 20; u++ {
			user := fmt.Sprintf("user-%02d", u)
			// A zero-weight event creates the user without points.
			_, _ = svc.Ingest(ctx, event(user+"-join", user, model.PlatformTwitter, model.ActionVoice))
			for i := 0; i < u; i++ {
				_, _ = svc.Ingest(ctx, event(fmt.Sprintf("%s-%d", user, i), user, model.PlatformTwitter, model.ActionLike))
			}
		}

		Convey("When counting tiers", func() {
			counts := svc.GetTierCounts(ctx)

			Convey("Then boundaries should be split exactly", func() {
				So(counts[model.TierBronze], ShouldEqual, 1)
				So(counts[model.TierSilver], ShouldEqual, 3)
				So(counts[model.TierGold], ShouldEqual, 6)
				So(counts[model.TierPlatinum], ShouldEqual, 10)
				So(counts[model.TierDiamond], ShouldEqual, 0)
			})
		})
	})
}

func TestService_Expiry(t *testing.T) {
	Convey("Given a service with a one hour dedup window", t, func() {
		ctx := context.Background()
		svc := newService(service.WithDedupeWindow(time.Hour))
		_, _ = svc.Ingest(ctx, event("fresh", "u", model.PlatformTwitter, model.ActionLike))

		Convey("When an event older than the window arrives", func() {
			old := event("stale", "u", model.PlatformTwitter, model.ActionLike)
			old.OccurredAt = now.Add(-3 * time.Hour)
			res, err := svc.Ingest(ctx, old)
			score, _ := svc.GetUserScore(ctx, "u")

			Convey("Then it should be reported as expired and not scored", func() {
				So(err, ShouldBeNil)
				So(res.Admitted, ShouldBeFalse)
				So(res.Outcome, ShouldEqual, model.OutcomeExpired)
				So(score.TotalScore, ShouldEqual, 5)
			})
		})
	})
}

func TestService_ConcurrentIngest(t *testing.T) {
	Convey("Given producers racing with overlapping deliveries", t, func() {
		ctx := context.Background()
		svc := newService(service.WithShardCount(4), service.WithDedupeStripes(4))

		const users = 10
		const eventsPerUser = 50
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for u := 0; u < users; u++ {
					for i := 0; i < eventsPerUser; i++ {
						id := fmt.Sprintf("u%d-e%d", u, i)
						_, _ = svc.Ingest(ctx, event(id, fmt.Sprintf("u%d", u), model.PlatformTelegram, model.ActionInvite))
					}
				}
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, _ = svc.Rank(ctx, 5)
				_ = svc.GetTierCounts(ctx)
			}
		}()
		wg.Wait()

		Convey("Then every distinct event should be counted exactly once", func() {
			for u := 0; u < users; u++ {
				s, err := svc.GetUserScore(ctx, fmt.Sprintf("u%d", u))
				So(err, ShouldBeNil)
				So(s.TotalScore, ShouldEqual, eventsPerUser*10)
			}
			stats := svc.GetStats()
			So(stats["totalUsers"], ShouldEqual, users)
			So(stats["totalPoints"], ShouldEqual, int64(users*eventsPerUser*10))
		})
	})
}

func TestService_ReadSide(t *testing.T) {
	Convey("Given a service with a few users", t, func() {
		ctx := context.Background()
		svc := newService()
		_, _ = svc.Ingest(ctx, event("1", "low", model.PlatformTelegram, model.ActionMessage))
		_, _ = svc.Ingest(ctx, event("2", "high", model.PlatformTwitter, model.ActionQuote))

		Convey("When asking for a position", func() {
			pos, err := svc.Position(ctx, "low")
			_, missing := svc.Position(ctx, "ghost")

			Convey("Then it should match the leaderboard", func() {
				So(err, ShouldBeNil)
				So(pos.Rank, ShouldEqual, 2)
				So(errors.Is(missing, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When asking for an invalid leaderboard size", func() {
			_, err := svc.Rank(ctx, 0)

			Convey("Then it should fail", func() {
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)
			})
		})

		Convey("When reading stats", func() {
			stats := svc.GetStats()

			Convey("Then totals and averages should be reported", func() {
				So(stats["started"], ShouldBeFalse)
				So(stats["totalUsers"], ShouldEqual, 2)
				So(stats["totalPoints"], ShouldEqual, int64(26))
				So(stats["averageScore"], ShouldEqual, 13.0)
			})
		})
	})
}
