package roster

import "github.com/kozaktomas/face-attendance/internal/database"

// Rename returns an update setting the display name and its lookup key.
func Rename(u database.StudentUpdate, name string) database.StudentUpdate {
	clean := CleanName(name)
	key := NameKey(clean)
	u.FullName = &clean
	u.NameKey = &key
	return u
}

// AssignClass returns an update moving the student to classID, or out of any class when nil.
func AssignClass(u database.StudentUpdate, classID *int64) database.StudentUpdate {
	u.ClassID = database.OptionalClassID{Set: true, Value: classID}
	return u
}
