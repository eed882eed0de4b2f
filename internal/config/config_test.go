package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/bjjscore/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreJSON)
			convey.So(cfg.PollIntervalMS, convey.ShouldEqual, 200)
			convey.So(cfg.PollInterval(), convey.ShouldEqual, 200*time.Millisecond)
			convey.So(cfg.HistoryCapacity, convey.ShouldEqual, 50)
			convey.So(cfg.FFmpegPath, convey.ShouldEqual, "ffmpeg")
			convey.So(cfg.VideoCodec, convey.ShouldEqual, "libx264")
			convey.So(cfg.OTelEndpoint, convey.ShouldBeEmpty)
		})

		convey.Convey("Then the defaults validate", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with bad values", t, func() {
		cases := []func(*config.Config){
			func(c *config.Config) { c.StoreDriver = "postgres" },
			func(c *config.Config) { c.StorePath = "" },
			func(c *config.Config) { c.ExportDir = "" },
			func(c *config.Config) { c.PollIntervalMS = 0 },
			func(c *config.Config) { c.HistoryCapacity = -1 },
			func(c *config.Config) { c.LogFormat = "xml" },
			func(c *config.Config) { c.Addr = "" },
		}

		convey.Convey("Then each one is rejected as invalid", func() {
			for _, mutate := range cases {
				cfg := config.New(context.Background())
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldNotBeEmpty)
			}
		})
	})
}
