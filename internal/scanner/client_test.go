package scanner

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"

	"eventpass/cmd/middleware"
	"eventpass/internal/api/api"
	"eventpass/internal/dto"
	"eventpass/internal/mocks"
	"eventpass/internal/model"
	"eventpass/internal/pass"
	"eventpass/internal/repo"
	"eventpass/internal/service"
)

func TestAPIClient_AgainstServer(t *testing.T) {
	const secret = "door-secret"
	store := repo.NewMemory()
	ctx := context.Background()
	_ = store.CreateEvent(ctx, &model.Event{ID: "e1", Name: "Hack Night", IsLive: true, Date: time.Now().Add(time.Hour)})
	_ = store.CreateRegistrationTx(ctx, &model.Registration{ID: "r1", EventID: "e1", StudentName: "Jane Doe",
		StudentEmail: "jane@example.com", Status: model.StatusWaitlisted, RegisteredAt: time.Now()})

	log := zerolog.Nop()
	svc := service.NewService(store, &log, mocks.NewMockQueue(gomock.NewController(t)), pass.NewRenderer("", 0))
	srv := httptest.NewServer(api.NewRouters(&api.Routers{Service: svc, Mode: "test", JWTSecret: secret}))
	defer srv.Close()

	token, _ := middleware.IssueToken(secret, "door@example.org", middleware.RoleOrganizer, time.Hour)
	client := NewAPIClient(srv.URL, "e1", token, 5*time.Second)

	res, err := client.Resolve(ctx, `{"registrationId":"r1"}`)
	if err != nil || res.Kind != dto.ScanRegistration || !res.Registration.CanCheckIn {
		t.Fatalf("unexpected scan %+v, %v", res, err)
	}
	out, err := client.CheckIn(ctx, "r1")
	if err != nil || !out.Success {
		t.Fatalf("unexpected check-in %+v, %v", out, err)
	}
	reg, _ := store.GetRegistrationByID(ctx, "r1")
	if !reg.Attended || reg.Status != model.StatusBooked {
		t.Fatalf("server state not updated: %+v", reg)
	}

	if _, err := NewAPIClient(srv.URL, "e1", "", time.Second).Resolve(ctx, "r1"); err == nil {
		t.Fatalf("missing token must fail")
	}
}
