package validator

import (
	"context"
	"testing"
	"time"
)

func TestIsTaskURL(t *testing.T) {
	cases := map[string]bool{
		"https://github.com/user/repo":           true,
		"http://github.com/user/repo":            true,
		"https://foo.github.io":                  true,
		"https://foo.github.io/project/":         true,
		"https://docs.google.com/document/d/abc": true,
		"https://example.com":                    false,
		"https://example.com/github.com":         false,
		"https://github.com.evil.org/x":          false,
		"https://github.io":                      false,
		"https://drive.google.com/file/d/x":      false,
		"github.com/user/repo":                   false,
		"ftp://github.com/user/repo":             false,
		"":                                       false,
	}
	for raw, want := range cases {
		if got := IsTaskURL(raw); got != want {
			t.Fatalf("IsTaskURL(%q) = %v, want %v", raw, got, want)
		}
	}
}

type form struct {
	Name   string `json:"student_name" validate:"required,min=2"`
	Email  string `json:"student_email" validate:"required,email"`
	Gender string `json:"gender" validate:"required,gender"`
	Link   string `json:"task_submission" validate:"required,taskurl"`
	Year   int    `json:"year_of_study" validate:"required,min=1"`
	Laptop *bool  `json:"laptop" validate:"required"`
}

func TestValidateFields_KeyedByJSONName(t *testing.T) {
	fields := ValidateFields(context.Background(), form{
		Name:   "J",
		Email:  "nope",
		Gender: "robot",
		Link:   "https://example.com",
	})
	for _, key := range []string{"student_name", "student_email", "gender", "task_submission", "year_of_study", "laptop"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("expected error for %s, got %v", key, fields)
		}
	}
	if fields["task_submission"] != ErrTaskURL {
		t.Fatalf("unexpected task url message %q", fields["task_submission"])
	}
}

func TestValidateFields_Valid(t *testing.T) {
	yes := true
	fields := ValidateFields(context.Background(), form{
		Name: "Jane Doe", Email: "jane@example.com", Gender: "female",
		Link: "https://github.com/jane/task", Year: 2, Laptop: &yes,
	})
	if fields != nil {
		t.Fatalf("expected no errors, got %v", fields)
	}
}

func TestValidate_FirstError(t *testing.T) {
	if err := Validate(context.Background(), form{}); err == nil {
		t.Fatalf("expected error")
	}
}

type schedule struct {
	Date  time.Time `json:"date" validate:"required,future"`
	Seats int       `json:"seats" validate:"positive"`
}

func TestValidateFields_FutureAndPositive(t *testing.T) {
	fields := ValidateFields(context.Background(), schedule{Date: time.Now().Add(-time.Hour), Seats: -3})
	if fields["date"] != "Date must be in the future" {
		t.Fatalf("expected future date error, got %v", fields)
	}
	if fields["seats"] != "Value must be positive" {
		t.Fatalf("expected positive error, got %v", fields)
	}

	if fields := ValidateFields(context.Background(), schedule{Date: time.Now().Add(time.Hour), Seats: 1}); fields != nil {
		t.Fatalf("expected no errors, got %v", fields)
	}
}
