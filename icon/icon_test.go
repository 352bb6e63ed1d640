package icon

import (
	"testing"

	"github.com/offtube/offtube/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
)

func TestGet(t *testing.T) {
	Convey("Given a registered icon", t, func() {
		target := Cookie

		Convey("It renders correctly for each variant", func() {
			for _, variant := range AvailableVariants() {
				Convey("variant="+variant, func() {
					viper.Set(key.IconsVariant, variant)
					result := Get(target)
					So(result, ShouldNotBeEmpty)
				})
			}
		})

		Convey("It returns empty for an unknown variant", func() {
			viper.Set(key.IconsVariant, "")
			result := Get(target)
			So(result, ShouldBeEmpty)
		})
	})

	Convey("Every icon defines every variant", t, func() {
		for i := Fail; i <= Key; i++ {
			for _, variant := range AvailableVariants() {
				viper.Set(key.IconsVariant, variant)
				So(Get(i), ShouldNotBeEmpty)
			}
		}
	})

	Convey("Check outcomes map to status symbols", t, func() {
		So(ForOutcome("healthy"), ShouldEqual, Success)
		So(ForOutcome("refreshed"), ShouldEqual, Success)
		So(ForOutcome("failed"), ShouldEqual, Fail)
		So(ForOutcome("skipped"), ShouldEqual, Info)
		So(ForOutcome("probed"), ShouldEqual, Info)
	})
}
