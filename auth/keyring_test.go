package auth

import (
	"errors"
	"testing"

	"github.com/offtube/offtube/key"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
)

func TestLookup(t *testing.T) {
	keyring.MockInit()

	Convey("Given a mocked keyring", t, func() {
		viper.Set(key.IdentityPassword, "")
		viper.Set(key.IdentityEmail, "")

		Convey("No email means no identity", func() {
			_, err := Lookup()
			So(errors.Is(err, ErrNoIdentity), ShouldBeTrue)
		})

		Convey("The keyring password wins over configuration", func() {
			viper.Set(key.IdentityEmail, "me@example.com")
			viper.Set(key.IdentityPassword, "from-config")
			So(SetPassword("me@example.com", "from-keyring"), ShouldBeNil)

			id, err := Lookup()
			So(err, ShouldBeNil)
			So(id.Password, ShouldEqual, "from-keyring")

			So(DeletePassword("me@example.com"), ShouldBeNil)
		})

		Convey("Configuration is used when the keyring is empty", func() {
			viper.Set(key.IdentityEmail, "other@example.com")
			viper.Set(key.IdentityPassword, "from-config")

			id, err := Lookup()
			So(err, ShouldBeNil)
			So(id, ShouldResemble, Identity{Email: "other@example.com", Password: "from-config"})
		})
	})
}
