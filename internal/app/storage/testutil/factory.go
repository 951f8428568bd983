package testutil

import (
	"context"

	"github.com/icrowley/fake"

	"github.com/oddbloke/steelersconfig/internal/app"
	"github.com/oddbloke/steelersconfig/internal/app/storage"
)

// Factory creates objects for tests.
type Factory struct {
	st *storage.Storage
}

func NewFactory(st *storage.Storage) Factory {
	return Factory{st: st}
}

// CreateSetting creates and returns a new setting. Empty fields are filled with random values.
func (f Factory) CreateSetting(args ...app.Setting) app.Setting {
	var arg app.Setting
	if len(args) > 0 {
		arg = args[0]
	}
	if arg.Key == "" {
		arg.Key = fake.Word()
	}
	if arg.Value == "" {
		arg.Value = fake.Word()
	}
	ctx := context.Background()
	if err := f.st.SetSetting(ctx, arg.Key, arg.Value); err != nil {
		panic(err)
	}
	oo, err := f.st.ListSettings(ctx)
	if err != nil {
		panic(err)
	}
	for _, o := range oo {
		if o.Key == arg.Key {
			return o
		}
	}
	panic("setting not found: " + arg.Key)
}
