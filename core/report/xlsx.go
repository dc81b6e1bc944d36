package report

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/trezcool/darasa/core/user"
)

const sheetName = "Report"

// ExportXLSX renders the report as a workbook: a quiz overview block followed
// by one row per student with first-attempt and highest scores per quiz.
// groupBy orders the rows (GroupByLastName or GroupByGender).
func ExportXLSX(rpt Report, groupBy string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	row := 1
	if err := setRow(f, row, "Topics", "Question Count"); err != nil {
		return nil, err
	}
	for _, quiz := range rpt.Quizzes {
		row++
		topic := fmt.Sprintf("%s / %s / %s", quiz.CourseTitle, quiz.LessonTitle, quiz.QuizTitle)
		if err := setRow(f, row, topic, quiz.QuestionCount); err != nil {
			return nil, err
		}
	}

	row += 2 // blank separator
	header := []interface{}{"Last Name", "First Name", "Gender"}
	for _, quiz := range rpt.Quizzes {
		header = append(header, quiz.QuizTitle+" (First)", quiz.QuizTitle+" (Best)")
	}
	if err := setRow(f, row, header...); err != nil {
		return nil, err
	}

	students := append([]user.User(nil), rpt.Students...)
	if groupBy == GroupByGender {
		sort.SliceStable(students, func(i, j int) bool {
			return strings.ToLower(students[i].Gender) < strings.ToLower(students[j].Gender)
		})
	}
	for _, student := range students {
		row++
		cells := []interface{}{student.LastName, student.FirstName, student.Gender}
		for _, quiz := range rpt.Quizzes {
			if cell, ok := rpt.Matrix[student.ID][quiz.QuizID]; ok {
				cells = append(cells, cell.FirstAttemptScore, cell.HighestScore)
			} else {
				cells = append(cells, "-", "-")
			}
		}
		if err := setRow(f, row, cells...); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, row int, values ...interface{}) error {
	for i, val := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return err
		}
		if err = f.SetCellValue(sheetName, cell, val); err != nil {
			return err
		}
	}
	return nil
}
