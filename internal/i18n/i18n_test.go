package i18n_test

import (
	"net/http/httptest"
	"testing"
	"testing/fstest"

	i18n "github.com/ciwomuli/eve-wormhole/internal/i18n"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/text/language"
)

func TestTranslator(t *testing.T) {
	Convey("Given the embedded catalogs", t, func() {
		Convey("Then English titles are resolved", func() {
			tr := i18n.Translator(language.MustParse("en-US"))
			So(tr("page.wormhole.title"), ShouldEqual, "Wormhole")
			So(tr("page.wormhole.submit"), ShouldEqual, "Submit")
		})

		Convey("Then Chinese titles are resolved", func() {
			tr := i18n.Translator(language.MustParse("zh-CN"))
			So(tr("page.wormhole.title"), ShouldEqual, "虫洞")
			So(tr("page.wormhole.submit"), ShouldEqual, "提交")
		})

		Convey("Then unsupported locales fall back to English", func() {
			tr := i18n.Translator(language.MustParse("de-DE"))
			So(tr("page.wormhole.title"), ShouldEqual, "Wormhole")
		})

		Convey("Then unknown keys are echoed", func() {
			tr := i18n.Translator(language.MustParse("zh-CN"))
			So(tr("page.unknown"), ShouldEqual, "page.unknown")
		})

		Convey("Then unknown keys with format verbs are echoed verbatim", func() {
			for _, tag := range []string{"en-US", "zh-CN"} {
				tr := i18n.Translator(language.MustParse(tag))
				So(tr("page.100%.done"), ShouldEqual, "page.100%.done")
				So(tr("%s%d%%"), ShouldEqual, "%s%d%%")
			}
		})
	})
}

func TestResolve(t *testing.T) {
	Convey("Given incoming requests", t, func() {
		Convey("When ?lang= is set", func() {
			r := httptest.NewRequest("GET", "/menu/all?lang=zh-CN", nil)
			r.Header.Set("Accept-Language", "en-US")

			Convey("Then it wins over Accept-Language", func() {
				So(i18n.Resolve(r), ShouldEqual, language.MustParse("zh-CN"))
			})
		})

		Convey("When only Accept-Language is set", func() {
			r := httptest.NewRequest("GET", "/menu/all", nil)
			r.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

			Convey("Then it is used", func() {
				So(i18n.Resolve(r), ShouldEqual, language.MustParse("zh-CN"))
			})
		})

		Convey("When nothing is set", func() {
			r := httptest.NewRequest("GET", "/menu/all", nil)

			Convey("Then the base locale is returned", func() {
				So(i18n.Resolve(r), ShouldEqual, language.MustParse("en-US"))
				So(i18n.Resolve(nil), ShouldEqual, language.MustParse("en-US"))
			})
		})
	})
}

func TestLoadFromFS(t *testing.T) {
	Convey("Given catalogs without the base locale", t, func() {
		fsys := fstest.MapFS{
			"locales/zh-CN.yaml": {Data: []byte("locale: zh-CN\nmessages:\n  a: b\n")},
		}

		Convey("Then loading fails", func() {
			_, err := i18n.LoadFromFS(fsys)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a catalog whose locale does not match its file name", t, func() {
		fsys := fstest.MapFS{
			"locales/en-US.yaml": {Data: []byte("locale: en-GB\nmessages:\n  a: b\n")},
		}

		Convey("Then loading fails", func() {
			_, err := i18n.LoadFromFS(fsys)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given an empty filesystem", t, func() {
		_, err := i18n.LoadFromFS(fstest.MapFS{})

		Convey("Then loading fails", func() {
			So(err, ShouldNotBeNil)
		})
	})
}
