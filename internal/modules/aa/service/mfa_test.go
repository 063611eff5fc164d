package service_test

import (
	"context"
	"errors"
	"testing"

	"gatekit/internal/modules/aa/domain"
	"gatekit/internal/modules/aa/service"
)

type fakeBackend struct {
	pushCalled bool
	otpCalled  bool
	gotOTP     string
	accepted   bool
	err        error
}

func (f *fakeBackend) PushAuthenticate(_ context.Context, _ string) (bool, error) {
	f.pushCalled = true
	return f.accepted, f.err
}

func (f *fakeBackend) OTPAuthenticate(_ context.Context, _, otp string) (bool, error) {
	f.otpCalled = true
	f.gotOTP = otp
	return f.accepted, f.err
}

func TestMFAClientSelectsOTPOrPushPath(t *testing.T) {
	t.Parallel()
	backend := &fakeBackend{accepted: true}
	client := service.NewMFAClient(backend, false, nil)

	verdict, err := client.ExecuteAuthenticate(context.Background(), "alice", "123456")
	if err != nil || verdict.Action != domain.ActionAccept {
		t.Fatalf("otp accept: verdict %+v err %v", verdict, err)
	}
	if !backend.otpCalled || backend.gotOTP != "123456" {
		t.Fatalf("otp path not taken: %+v", backend)
	}

	backend = &fakeBackend{accepted: true}
	client = service.NewMFAClient(backend, false, nil)
	if _, err := client.ExecuteAuthenticate(context.Background(), "alice", ""); err != nil {
		t.Fatalf("push: %v", err)
	}
	if !backend.pushCalled {
		t.Fatalf("empty password must select the push path")
	}
}

func TestMFAClientClassifiesFailures(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name           string
		err            error
		ignoreConnErr  bool
		wantAction     domain.Action
		wantDenyReason string
	}{
		{"authentication failure", &domain.AuthenticationFailure{Message: "bad otp"}, false, domain.ActionDeny, "Authentication failed"},
		{"communication error", &domain.CommunicationError{Message: "garbled reply"}, false, domain.ActionDeny, "Communication Error"},
		{"unreachable without fallback", &domain.ServiceUnreachable{}, false, domain.ActionDeny, "Backend service unreachable"},
		{"unreachable with fallback", &domain.ServiceUnreachable{}, true, domain.ActionAccept, ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			client := service.NewMFAClient(&fakeBackend{err: tc.err}, tc.ignoreConnErr, nil)
			verdict, err := client.ExecuteAuthenticate(context.Background(), "alice", "")
			if err != nil {
				t.Fatalf("classified errors must not propagate: %v", err)
			}
			if verdict.Action != tc.wantAction {
				t.Fatalf("action %s, want %s", verdict.Action, tc.wantAction)
			}
			if verdict.DenyReason != tc.wantDenyReason {
				t.Fatalf("deny_reason %q, want %q", verdict.DenyReason, tc.wantDenyReason)
			}
		})
	}
}

func TestMFAClientRejectionDenies(t *testing.T) {
	t.Parallel()
	client := service.NewMFAClient(&fakeBackend{accepted: false}, false, nil)
	verdict, err := client.ExecuteAuthenticate(context.Background(), "alice", "000000")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if verdict.Action != domain.ActionDeny || verdict.DenyReason != "Authentication failed" {
		t.Fatalf("unexpected verdict %+v", verdict)
	}
}

func TestMFAClientPropagatesUnclassifiedErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	client := service.NewMFAClient(&fakeBackend{err: boom}, false, nil)
	if _, err := client.ExecuteAuthenticate(context.Background(), "alice", ""); !errors.Is(err, boom) {
		t.Fatalf("expected boom to propagate, got %v", err)
	}
}
