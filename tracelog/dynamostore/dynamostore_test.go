package dynamostore

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
)

func TestMeterItemRoundTripsThroughAttributeValue(t *testing.T) {
	want := meterItem{
		RunID:     "run1",
		NodeID:    "n1",
		Status:    "success",
		Start:     time.Now().Add(-time.Minute).Unix(),
		Finish:    time.Now().Unix(),
		ExpiresAt: time.Now().Add(24 * time.Hour).Unix(),
	}

	av, err := attributevalue.MarshalMap(want)
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}

	var got meterItem
	if err := attributevalue.UnmarshalMap(av, &got); err != nil {
		t.Fatalf("UnmarshalMap: %v", err)
	}

	if got != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, want)
	}
}

func TestMeterItemOmitsZeroFinishAndExpiry(t *testing.T) {
	item := meterItem{RunID: "run1", NodeID: "n1", Status: "running", Start: 100}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}
	if _, ok := av["finish"]; ok {
		t.Error("expected finish to be omitted when zero")
	}
	if _, ok := av["expires_at"]; ok {
		t.Error("expected expires_at to be omitted when zero")
	}
}
