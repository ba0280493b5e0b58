package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ukaji3/schedstruct-go/pkg/schedstruct/models"
)

// LoadRegistry reads the registry in stored order.
func (s *Store) LoadRegistry(ctx context.Context) (*models.Registry, error) {
	reg := &models.Registry{
		Instructors: []models.Instructor{},
		Subjects:    []models.Subject{},
		Relations:   []models.Relation{},
	}

	instructorForms, err := s.forms(ctx, "SELECT instructor_id, form FROM instructor_forms ORDER BY instructor_id, position")
	if err != nil {
		return nil, err
	}
	subjectForms, err := s.forms(ctx, "SELECT subject_id, form FROM subject_forms ORDER BY subject_id, position")
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, primary_name FROM instructors ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query instructors: %w", err)
	}
	for rows.Next() {
		var in models.Instructor
		if err := rows.Scan(&in.ID, &in.PrimaryName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan instructor: %w", err)
		}
		in.AlternateForms = instructorForms[in.ID]
		reg.Instructors = append(reg.Instructors, in)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, `SELECT id, name, program, degree_level, year, semester, mode
		FROM subjects ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	for rows.Next() {
		var sub models.Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Program, &sub.DegreeLevel, &sub.Year, &sub.Semester, &sub.Mode); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		sub.AlternateForms = subjectForms[sub.ID]
		reg.Subjects = append(reg.Subjects, sub)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx, "SELECT subject_id, instructor_id FROM relations ORDER BY subject_id, instructor_id")
	if err != nil {
		return nil, fmt.Errorf("query relations: %w", err)
	}
	for rows.Next() {
		var r models.Relation
		if err := rows.Scan(&r.SubjectID, &r.InstructorID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan relation: %w", err)
		}
		reg.Relations = append(reg.Relations, r)
	}
	if err := closeRows(rows); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *Store) forms(ctx context.Context, query string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query forms: %w", err)
	}
	out := make(map[string][]string)
	for rows.Next() {
		var id, form string
		if err := rows.Scan(&id, &form); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan form: %w", err)
		}
		out[id] = append(out[id], form)
	}
	return out, closeRows(rows)
}

// SaveRegistry replaces the stored registry with reg.
func (s *Store) SaveRegistry(ctx context.Context, reg *models.Registry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"relations", "subject_forms", "subjects", "instructor_forms", "instructors"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		for i, in := range reg.Instructors {
			if _, err := tx.ExecContext(ctx, s.rebind(
				"INSERT INTO instructors (id, primary_name, position) VALUES (?, ?, ?)"),
				in.ID, in.PrimaryName, i); err != nil {
				return fmt.Errorf("insert instructor %s: %w", in.ID, err)
			}
			for j, form := range in.AlternateForms {
				if _, err := tx.ExecContext(ctx, s.rebind(
					"INSERT INTO instructor_forms (instructor_id, position, form) VALUES (?, ?, ?)"),
					in.ID, j, form); err != nil {
					return fmt.Errorf("insert instructor form: %w", err)
				}
			}
		}

		for i, sub := range reg.Subjects {
			if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO subjects
				(id, name, program, degree_level, year, semester, mode, position)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				sub.ID, sub.Name, sub.Program, sub.DegreeLevel, sub.Year, sub.Semester, sub.Mode, i); err != nil {
				return fmt.Errorf("insert subject %s: %w", sub.ID, err)
			}
			for j, form := range sub.AlternateForms {
				if _, err := tx.ExecContext(ctx, s.rebind(
					"INSERT INTO subject_forms (subject_id, position, form) VALUES (?, ?, ?)"),
					sub.ID, j, form); err != nil {
					return fmt.Errorf("insert subject form: %w", err)
				}
			}
		}

		seen := make(map[models.Relation]bool, len(reg.Relations))
		for _, r := range reg.Relations {
			if seen[r] {
				continue
			}
			seen[r] = true
			if _, err := tx.ExecContext(ctx, s.rebind(
				"INSERT INTO relations (subject_id, instructor_id) VALUES (?, ?)"),
				r.SubjectID, r.InstructorID); err != nil {
				return fmt.Errorf("insert relation: %w", err)
			}
		}
		return nil
	})
}

func closeRows(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate rows: %w", err)
	}
	return rows.Close()
}
