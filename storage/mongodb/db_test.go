package mongorepos

import (
	"testing"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ablespace/ablespace/core"
)

func TestFatalDBErr(t *testing.T) {
	err := fatalDBErr(mongo.ErrClientDisconnected, "finding user")
	if !core.IsShutdown(err) {
		t.Error("a disconnected client should demand a shutdown")
	}
	if !core.IsShutdown(errors.Wrap(err, "getting profile")) {
		t.Error("the shutdown marker should survive wrapping")
	}

	err = fatalDBErr(errors.New("write conflict"), "updating task")
	if core.IsShutdown(err) {
		t.Error("ordinary errors must not shut the server down")
	}
	if err.Error() != "updating task: write conflict" {
		t.Errorf("Error() = %q", err.Error())
	}
}
