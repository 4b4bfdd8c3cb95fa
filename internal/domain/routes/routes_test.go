package routes_test

import (
	"encoding/json"
	"testing"

	routes "github.com/ciwomuli/eve-wormhole/internal/domain/routes"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	Convey("Given the wormhole route table", t, func() {
		tbl := routes.Table()

		Convey("Then it has exactly one top-level entry", func() {
			So(tbl, ShouldHaveLength, 1)
			top := tbl[0]
			So(top.Name, ShouldEqual, "Wormhole")
			So(top.Path, ShouldEqual, "/wormhole")
			So(top.Component, ShouldBeEmpty)
			So(top.Meta, ShouldResemble, routes.RouteMeta{
				Icon:  "lucide:layout-dashboard",
				Order: -1,
				Title: "page.wormhole.title",
			})
		})

		Convey("Then that entry has exactly one child", func() {
			children := tbl[0].Children
			So(children, ShouldHaveLength, 1)
			sub := children[0]
			So(sub.Name, ShouldEqual, "Submit")
			So(sub.Path, ShouldEqual, "/submit")
			So(sub.Component, ShouldEqual, "wormhole/submit")
			So(sub.Children, ShouldBeEmpty)
			So(sub.Meta, ShouldResemble, routes.RouteMeta{
				AffixTab: true,
				Icon:     "lucide:area-chart",
				Title:    "page.wormhole.submit",
			})
		})

		Convey("When a caller mutates its copy", func() {
			tbl[0].Path = "/changed"
			tbl[0].Children[0].Meta.Title = "changed"

			Convey("Then the declaration is unaffected", func() {
				fresh := routes.Table()
				So(fresh[0].Path, ShouldEqual, "/wormhole")
				So(fresh[0].Children[0].Meta.Title, ShouldEqual, "page.wormhole.submit")
			})
		})
	})
}

func TestLocalize(t *testing.T) {
	Convey("Given a translator", t, func() {
		tr := func(key string) string { return "T(" + key + ")" }

		Convey("Then every title is passed through it", func() {
			tbl := routes.Localize(tr)
			So(tbl[0].Meta.Title, ShouldEqual, "T(page.wormhole.title)")
			So(tbl[0].Children[0].Meta.Title, ShouldEqual, "T(page.wormhole.submit)")
			So(routes.Table()[0].Meta.Title, ShouldEqual, "page.wormhole.title")
		})
	})
}

func TestTableJSON(t *testing.T) {
	Convey("Given the table encoded for the client router", t, func() {
		b, err := json.Marshal(routes.Table())
		So(err, ShouldBeNil)

		Convey("Then it uses the router's field names", func() {
			var decoded []map[string]any
			So(json.Unmarshal(b, &decoded), ShouldBeNil)
			meta := decoded[0]["meta"].(map[string]any)
			So(meta["order"], ShouldEqual, -1)
			So(meta["icon"], ShouldEqual, "lucide:layout-dashboard")

			child := decoded[0]["children"].([]any)[0].(map[string]any)
			childMeta := child["meta"].(map[string]any)
			So(childMeta["affixTab"], ShouldEqual, true)
			So(child["component"], ShouldEqual, "wormhole/submit")
		})
	})
}

func TestPaths(t *testing.T) {
	Convey("Given the route table", t, func() {
		Convey("Then the absolute child path is mounted as-is", func() {
			So(routes.Paths(), ShouldResemble, []string{"/wormhole", "/submit"})
		})
	})
}
