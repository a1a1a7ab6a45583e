package repository

import "errors"

// ErrDuplicateAttendance indicates the user already attends the activity.
var ErrDuplicateAttendance = errors.New("attendance already recorded")
