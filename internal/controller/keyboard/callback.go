package keyboard

import (
	"fmt"
	"strconv"
	"strings"
)

// Префикс callback data карточки занятия: lesson:<id>:<op>[:<arg>]
const lessonPrefix = "lesson:"

// Операции карточки, которые не являются действиями занятия
const (
	OpOpen        = "open"
	OpRefresh     = "refresh"
	OpSetTime     = "time"
	OpPickStudent = "student"
	OpSetStudent  = "setstudent"
)

// LessonCallback собирает callback data для карточки занятия
func LessonCallback(lessonID int64, op string, arg ...int64) string {
	data := fmt.Sprintf("%s%d:%s", lessonPrefix, lessonID, op)
	if len(arg) > 0 {
		data += ":" + strconv.FormatInt(arg[0], 10)
	}
	return data
}

// LessonCallbackData - разобранный callback карточки
type LessonCallbackData struct {
	LessonID int64
	Op       string
	Arg      int64
}

// ParseLessonCallback разбирает callback data карточки занятия
func ParseLessonCallback(data string) (LessonCallbackData, bool) {
	rest, ok := strings.CutPrefix(data, lessonPrefix)
	if !ok {
		return LessonCallbackData{}, false
	}

	parts := strings.Split(rest, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[1] == "" {
		return LessonCallbackData{}, false
	}

	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		return LessonCallbackData{}, false
	}

	cb := LessonCallbackData{LessonID: id, Op: parts[1]}
	if len(parts) == 3 {
		arg, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return LessonCallbackData{}, false
		}
		cb.Arg = arg
	}
	return cb, true
}
