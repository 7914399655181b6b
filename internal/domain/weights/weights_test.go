package weights_test

import (
	"testing"

	"github.com/okian/kira/internal/domain/model"
	"github.com/okian/kira/internal/domain/weights"
	. "github.com/smartystreets/goconvey/convey"
)

func TestResolver_BaseTables(t *testing.T) {
	Convey("Given a resolver with the base tables", t, func() {
		r := weights.NewResolver()

		cases := []struct {
			platform model.Platform
			action   model.Action
			want     int64
		}{
			{model.PlatformTwitter, model.ActionMention, 10},
			{model.PlatformTwitter, model.ActionLike, 5},
			{model.PlatformTwitter, model.ActionReply, 20},
			{model.PlatformTwitter, model.ActionRetweet, 15},
			{model.PlatformTwitter, model.ActionQuote, 25},
			{model.PlatformTelegram, model.ActionMessage, 1},
			{model.PlatformTelegram, model.ActionReaction, 2},
			{model.PlatformTelegram, model.ActionInvite, 10},
			{model.PlatformTelegram, model.ActionCommand, 3},
			{model.PlatformDiscord, model.ActionMessage, 1},
			{model.PlatformDiscord, model.ActionReaction, 2},
			{model.PlatformDiscord, model.ActionVoice, 5},
			{model.PlatformDiscord, model.ActionInvite, 10},
		}

		Convey("Then every listed action should resolve to its table weight", func() {
			for _, c := range cases {
				So(r.Resolve(c.platform, c.action, 0), ShouldEqual, c.want)
				So(r.Known(c.platform, c.action), ShouldBeTrue)
			}
		})
	})
}

func TestResolver_Fallback(t *testing.T) {
	Convey("Given actions a platform does not list", t, func() {
		r := weights.NewResolver()

		Convey("Then each platform's default weight should apply", func() {
			So(r.Known(model.PlatformTwitter, model.ActionVoice), ShouldBeFalse)
			So(r.Resolve(model.PlatformTwitter, model.ActionVoice, 0), ShouldEqual, 5)
			So(r.Resolve(model.PlatformTelegram, model.ActionVoice, 0), ShouldEqual, 1)
			So(r.Resolve(model.PlatformDiscord, model.ActionCommand, 0), ShouldEqual, 1)
		})

		Convey("And an unknown platform should resolve to zero", func() {
			So(r.Resolve("myspace", model.ActionLike, 10), ShouldEqual, 0)
		})
	})
}

func TestResolver_TwitterBonus(t *testing.T) {
	Convey("Given a twitter action with a raw metric bonus", t, func() {
		r := weights.NewResolver()

		Convey("When the bonus is below the cap", func() {
			Convey("Then it should be added in full", func() {
				So(r.Resolve(model.PlatformTwitter, model.ActionMention, 7), ShouldEqual, 17)
			})
		})

		Convey("When the bonus exceeds the cap", func() {
			Convey("Then only fifty points should be added", func() {
				So(r.Resolve(model.PlatformTwitter, model.ActionReply, 1000), ShouldEqual, 70)
				So(r.Resolve(model.PlatformTwitter, model.ActionReply, 50), ShouldEqual, 70)
			})
		})

		Convey("When the fallback weight applies", func() {
			Convey("Then the bonus should stack on the default", func() {
				So(r.Resolve(model.PlatformTwitter, model.ActionMessage, 3), ShouldEqual, 8)
			})
		})

		Convey("When the bonus is supplied on another platform", func() {
			Convey("Then it should be ignored", func() {
				So(r.Resolve(model.PlatformTelegram, model.ActionMessage, 40), ShouldEqual, 1)
				So(r.Resolve(model.PlatformDiscord, model.ActionVoice, 40), ShouldEqual, 5)
			})
		})

		Convey("When the bonus is negative", func() {
			Convey("Then the base weight should be returned", func() {
				So(r.Resolve(model.PlatformTwitter, model.ActionLike, -5), ShouldEqual, 5)
			})
		})
	})
}

func TestResolver_Options(t *testing.T) {
	Convey("Given configured overrides", t, func() {
		r := weights.NewResolver(
			weights.WithOverrides(map[string]map[string]int{
				"twitter":  {"like": 8, "bogus": 100},
				"telegram": {"voice": 4, "message": -3},
				"myspace":  {"like": 99},
			}),
			weights.WithPlatformDefaults(map[string]int{"discord": 2, "nowhere": 9}),
		)

		Convey("Then valid overrides should replace or extend the table", func() {
			So(r.Resolve(model.PlatformTwitter, model.ActionLike, 0), ShouldEqual, 8)
			So(r.Resolve(model.PlatformTelegram, model.ActionVoice, 0), ShouldEqual, 4)
			So(r.Known(model.PlatformTelegram, model.ActionVoice), ShouldBeTrue)
		})

		Convey("And invalid overrides should be ignored", func() {
			So(r.Resolve(model.PlatformTelegram, model.ActionMessage, 0), ShouldEqual, 1)
			So(r.Resolve(model.PlatformDiscord, model.ActionCommand, 0), ShouldEqual, 2)
		})

		Convey("And the table copy should not alias internal state", func() {
			tbl := r.Table()
			tbl[model.PlatformTwitter][model.ActionLike] = 1000
			So(r.Resolve(model.PlatformTwitter, model.ActionLike, 0), ShouldEqual, 8)
		})
	})
}
