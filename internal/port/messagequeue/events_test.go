package messagequeue

import (
	"strings"
	"testing"
	"time"
)

func TestValidatePayloadKnownSubjects(t *testing.T) {
	due := time.Now().Add(48 * time.Hour).Format(time.RFC3339)

	cases := []struct {
		name    string
		subject string
		payload string
		wantErr string
	}{
		{
			name:    "sku generated valid",
			subject: SubjectSKUGenerated,
			payload: `{"vendor_id":"acme","raw_code":"Widget 9","canonical_sku":"ACME-WIDGET9","outcome":"inserted","attempts":0}`,
		},
		{
			name:    "sku generated missing vendor",
			subject: SubjectSKUGenerated,
			payload: `{"canonical_sku":"ACME-WIDGET9"}`,
			wantErr: "vendor_id",
		},
		{
			name:    "image validated valid",
			subject: SubjectImageValidated,
			payload: `{"image_path":"/img/a.png","status":"accepted","validation_score":0.91,"reason":"All checks passed"}`,
		},
		{
			name:    "image validated missing status",
			subject: SubjectImageValidated,
			payload: `{"image_path":"/img/a.png"}`,
			wantErr: "status",
		},
		{
			name:    "review created valid",
			subject: SubjectReviewCreated,
			payload: `{"task_id":"t1","image_url":"/img/a.png","validation_score":0.72,"priority":4,"due_by":"` + due + `"}`,
		},
		{
			name:    "review created priority out of range",
			subject: SubjectReviewCreated,
			payload: `{"task_id":"t1","priority":9,"due_by":"` + due + `"}`,
			wantErr: "priority",
		},
		{
			name:    "review decided valid",
			subject: SubjectReviewDecided,
			payload: `{"task_id":"t1","decision":"accepted","reviewer_id":"r1","training_eligible":true}`,
		},
		{
			name:    "review decided missing reviewer",
			subject: SubjectReviewDecided,
			payload: `{"task_id":"t1","decision":"accepted"}`,
			wantErr: "reviewer_id",
		},
		{
			name:    "training captured valid",
			subject: SubjectReviewTraining,
			payload: `{"task_id":"t1","feedback_id":"f1","decision":"rejected","confidence":4}`,
		},
		{
			name:    "training captured bad confidence",
			subject: SubjectReviewTraining,
			payload: `{"task_id":"t1","feedback_id":"f1","decision":"rejected","confidence":0}`,
			wantErr: "confidence",
		},
		{
			name:    "sla breach valid",
			subject: SubjectReviewSLA,
			payload: `{"task_id":"t1","priority":2,"due_by":"` + due + `"}`,
		},
		{
			name:    "sla breach missing due_by",
			subject: SubjectReviewSLA,
			payload: `{"task_id":"t1","priority":2}`,
			wantErr: "due_by",
		},
		{
			name:    "malformed json on typed subject",
			subject: SubjectReviewCreated,
			payload: `not-json`,
			wantErr: "decode payload",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload(tc.subject, []byte(tc.payload))
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("ValidatePayload: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidatePayloadUnknownSubject(t *testing.T) {
	if err := ValidatePayload("catalog.test.free_form", []byte(`{"anything":true}`)); err != nil {
		t.Errorf("unknown subject with valid JSON: %v", err)
	}
	if err := ValidatePayload("catalog.test.free_form", []byte("not-json")); err == nil {
		t.Error("unknown subject with invalid JSON should fail")
	}
}
