// Package repository defines sentinel error values reused across the
// repositories. These let higher layers such as services and handlers
// distinguish failure scenarios without inspecting driver errors. For
// example, ErrDuplicateEnrollment signals that the uniqueness invariant
// on (user, course) fired during an insert, which the provisioner
// resolves to "already enrolled" rather than a failure.
package repository

import "errors"

// ErrPurchaseNotFound is returned when no purchase exists for the
// requested identifier. Handlers translate this into HTTP 404 or the
// gateway acknowledgement code "01".
var ErrPurchaseNotFound = errors.New("purchase not found")

// ErrCourseNotFound is returned when a referenced course does not
// exist in the catalog.
var ErrCourseNotFound = errors.New("course not found")

// ErrEnrollmentNotFound is returned when no live enrollment exists
// for the requested identifier or (user, course) pair.
var ErrEnrollmentNotFound = errors.New("enrollment not found")

// ErrDuplicateEnrollment is returned when an enrollment insert hits the
// unique (user_id, course_id) key. The caller should fetch and reuse
// the existing live row.
var ErrDuplicateEnrollment = errors.New("enrollment already exists")
