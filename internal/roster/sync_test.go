package roster

import (
	"context"
	"errors"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/database/mock"
)

type fakeSource struct {
	classes    []SourceClass
	students   []SourceStudent
	classesErr error
}

func (f *fakeSource) ListClasses(ctx context.Context) ([]SourceClass, error) {
	return f.classes, f.classesErr
}

func (f *fakeSource) ListStudents(ctx context.Context) ([]SourceStudent, error) {
	return f.students, nil
}

func TestSyncer_Sync(t *testing.T) {
	store := mock.NewMockRosterWriter()
	source := &fakeSource{
		classes: []SourceClass{{ExternalID: "7A", Name: " 7.A "}},
		students: []SourceStudent{
			{ExternalID: "s1", FullName: "Jan  Novák", ClassExternalID: "7A"},
			{ExternalID: "s2", FullName: "Eva Dvořáková", ClassExternalID: "9Z"},
			{ExternalID: "s3", FullName: "Petr Svoboda"},
			{ExternalID: "", FullName: "No Id"},
		},
	}

	result, err := NewSyncer(source, store, nil).Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if result.Classes != 1 || result.Students != 3 || result.Unassigned != 2 || result.Skipped != 1 {
		t.Errorf("unexpected result %+v", result)
	}

	jan, _ := store.GetStudentByExternalID(context.Background(), "s1")
	if jan == nil {
		t.Fatal("student s1 not synced")
	}
	if jan.FullName != "Jan Novák" {
		t.Errorf("FullName = %q, want %q", jan.FullName, "Jan Novák")
	}
	if jan.NameKey != "jan novak" {
		t.Errorf("NameKey = %q, want %q", jan.NameKey, "jan novak")
	}
	if jan.ClassID == nil {
		t.Fatal("expected class assignment")
	}
	class, _ := store.GetClass(context.Background(), *jan.ClassID)
	if class == nil || class.Name != "7.A" {
		t.Errorf("unexpected class %+v", class)
	}
}

func TestSyncer_SyncIsIdempotent(t *testing.T) {
	store := mock.NewMockRosterWriter()
	source := &fakeSource{
		classes:  []SourceClass{{ExternalID: "7A", Name: "7.A"}},
		students: []SourceStudent{{ExternalID: "s1", FullName: "Jan Novák", ClassExternalID: "7A"}},
	}
	syncer := NewSyncer(source, store, nil)

	for range 2 {
		if _, err := syncer.Sync(context.Background()); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
	}

	students, _ := store.ListStudents(context.Background(), nil)
	if len(students) != 1 {
		t.Errorf("expected 1 student after two syncs, got %d", len(students))
	}
}

func TestSyncer_SourceError(t *testing.T) {
	boom := errors.New("connection refused")
	store := mock.NewMockRosterWriter()

	_, err := NewSyncer(&fakeSource{classesErr: boom}, store, nil).Sync(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Sync() error = %v, want wrapped %v", err, boom)
	}
}

func TestSyncer_StoreError(t *testing.T) {
	store := mock.NewMockRosterWriter()
	store.UpsertError = errors.New("db down")
	source := &fakeSource{classes: []SourceClass{{ExternalID: "7A", Name: "7.A"}}}

	result, err := NewSyncer(source, store, nil).Sync(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if result == nil || result.Classes != 0 {
		t.Errorf("unexpected partial result %+v", result)
	}
}
