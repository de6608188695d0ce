package hook_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/danpasecinic/detour/internal/hook"
)

func mustTarget(t *testing.T, fnPtr any) hook.Target {
	t.Helper()
	target, err := hook.TargetOf(fnPtr)
	if err != nil {
		t.Fatalf("TargetOf failed: %v", err)
	}
	return target
}

func TestStateInstallIsIdempotent(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	hooker := NewMockHooker(ctrl)

	fn := func(a, b int) int { return a + b }
	target := mustTarget(t, &fn)
	detour := reflect.ValueOf(func(a, b int) int { return 0 })

	gomock.InOrder(
		hooker.EXPECT().CreateHook(gomock.Any(), gomock.Any()).Return(reflect.ValueOf(fn), nil).Times(1),
		hooker.EXPECT().EnableHook(gomock.Any()).Return(nil).Times(1),
	)

	var state hook.State
	require.Nil(t, state.Install(hooker, target, detour))
	require.Nil(t, state.Install(hooker, target, detour))
	assert.True(t, state.Installed())

	original, ok := state.Original()
	require.True(t, ok)
	assert.Equal(t, 5, original.Call([]reflect.Value{reflect.ValueOf(2), reflect.ValueOf(3)})[0].Interface())
}

func TestStateCreateHookFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	hooker := NewMockHooker(ctrl)

	fn := func() {}
	target := mustTarget(t, &fn)

	hooker.EXPECT().CreateHook(gomock.Any(), gomock.Any()).Return(reflect.Value{}, errors.New("boom"))

	var state hook.State
	herr := state.Install(hooker, target, reflect.ValueOf(func() {}))
	require.NotNil(t, herr)
	assert.Equal(t, hook.ErrCodeCreateHookFailed, herr.Code)
	assert.False(t, state.Installed())
	_, ok := state.Original()
	assert.False(t, ok)
}

func TestStateEnableFailureRemovesHook(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	hooker := NewMockHooker(ctrl)

	fn := func() {}
	target := mustTarget(t, &fn)

	gomock.InOrder(
		hooker.EXPECT().CreateHook(gomock.Any(), gomock.Any()).Return(reflect.ValueOf(fn), nil),
		hooker.EXPECT().EnableHook(gomock.Any()).Return(errors.New("protected page")),
		hooker.EXPECT().RemoveHook(gomock.Any()).Return(nil),
	)

	var state hook.State
	herr := state.Install(hooker, target, reflect.ValueOf(func() {}))
	require.NotNil(t, herr)
	assert.Equal(t, hook.ErrCodeEnableHookFailed, herr.Code)
	assert.ErrorContains(t, herr, "protected page")
	assert.False(t, state.Installed())
}

func TestStateInstallInvalidArguments(t *testing.T) {
	t.Parallel()

	var state hook.State
	herr := state.Install(hook.NewFuncVarHooker(), hook.Target{}, reflect.ValueOf(func() {}))
	require.NotNil(t, herr)
	assert.Equal(t, hook.ErrCodeInvalidInstallArgument, herr.Code)
}

func TestStateUninstall(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	hooker := NewMockHooker(ctrl)

	fn := func() {}
	target := mustTarget(t, &fn)

	gomock.InOrder(
		hooker.EXPECT().CreateHook(gomock.Any(), gomock.Any()).Return(reflect.ValueOf(fn), nil),
		hooker.EXPECT().EnableHook(gomock.Any()).Return(nil),
		hooker.EXPECT().DisableHook(gomock.Any()).Return(nil),
		hooker.EXPECT().RemoveHook(gomock.Any()).Return(nil),
	)

	var state hook.State
	require.Nil(t, state.Install(hooker, target, reflect.ValueOf(func() {})))
	require.Nil(t, state.Uninstall(hooker, target))
	assert.False(t, state.Installed())
	require.Nil(t, state.Uninstall(hooker, target))
}

func TestTargetOfRejectsUnsupportedShapes(t *testing.T) {
	t.Parallel()

	var nilFn func()
	notFunc := 42
	var nilPtr *func()

	tests := []struct {
		name  string
		input any
	}{
		{"nil", nil},
		{"func value", func() {}},
		{"nil pointer", nilPtr},
		{"pointer to int", &notFunc},
		{"nil func variable", &nilFn},
	}

	for _, tt := range tests {
		t.Run(
			tt.name, func(t *testing.T) {
				t.Parallel()
				_, herr := hook.TargetOf(tt.input)
				if herr == nil {
					t.Fatal("expected error")
				}
				if herr.Code != hook.ErrCodeInvalidInstallArgument {
					t.Fatalf("expected INVALID_INSTALL_ARGUMENT, got %s", herr.Code)
				}
			},
		)
	}
}

func TestTargetIdentity(t *testing.T) {
	t.Parallel()

	a := func() {}
	b := a

	ta := mustTarget(t, &a)
	tb := mustTarget(t, &b)
	again := mustTarget(t, &a)

	if ta.Key() == tb.Key() {
		t.Error("distinct variables must have distinct targets")
	}
	if ta.Key() != again.Key() {
		t.Error("same variable must have a stable target")
	}
	if ta.IsZero() {
		t.Error("target should not be zero")
	}
}

func TestFuncVarHooker(t *testing.T) {
	t.Parallel()

	fn := func(x int) int { return x }
	target := mustTarget(t, &fn)
	h := hook.NewFuncVarHooker()

	detour := reflect.ValueOf(func(x int) int { return -x })
	original, err := h.CreateHook(target, detour)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Len())

	_, err = h.CreateHook(target, detour)
	assert.ErrorIs(t, err, hook.ErrHookExists)

	require.NoError(t, h.EnableHook(target))
	assert.Equal(t, -3, fn(3))
	assert.Equal(t, 3, original.Call([]reflect.Value{reflect.ValueOf(3)})[0].Interface())

	require.NoError(t, h.DisableHook(target))
	assert.Equal(t, 3, fn(3))

	require.NoError(t, h.EnableHook(target))
	require.NoError(t, h.RemoveHook(target))
	assert.Equal(t, 3, fn(3))
	assert.Equal(t, 0, h.Len())
	assert.ErrorIs(t, h.EnableHook(target), hook.ErrHookNotFound)
}

func TestFuncVarHookerRejectsMismatchedDetour(t *testing.T) {
	t.Parallel()

	fn := func(x int) int { return x }
	target := mustTarget(t, &fn)

	_, err := hook.NewFuncVarHooker().CreateHook(target, reflect.ValueOf(func() {}))
	assert.Error(t, err)
}
