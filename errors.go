// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package markitdown

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat matches every *UnsupportedFormatError under errors.Is.
var ErrUnsupportedFormat = errors.New("unsupported format")

// UnsupportedFormatError means no registered converter accepts the input. Legacy binary Office files (.doc, .ppt)
// end up here.
type UnsupportedFormatError struct {
	Filename  string
	Extension string
	MIMEType  string
}

func (e *UnsupportedFormatError) Error() string {
	var b strings.Builder
	b.WriteString(ErrUnsupportedFormat.Error())
	if e.Filename != "" {
		fmt.Fprintf(&b, " %s", e.Filename)
	}
	if e.Extension != "" {
		fmt.Fprintf(&b, " (extension %s", e.Extension)
		if e.MIMEType != "" {
			fmt.Fprintf(&b, ", %s", e.MIMEType)
		}
		b.WriteString(")")
	} else if e.MIMEType != "" {
		fmt.Fprintf(&b, " (%s)", e.MIMEType)
	}
	return b.String()
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// FailedConversionAttempt is one converter that accepted the input and then failed on it.
type FailedConversionAttempt struct {
	Converter string
	Err       error
}

// ConversionError collects the attempts made on an input that every accepting converter failed to read.
type ConversionError struct {
	Filename string
	Attempts []FailedConversionAttempt
}

func (e *ConversionError) Error() string {
	prefix := "conversion failed"
	if e.Filename != "" {
		prefix += " for " + e.Filename
	}
	switch len(e.Attempts) {
	case 0:
		return prefix
	case 1:
		return fmt.Sprintf("%s: %s: %v", prefix, e.Attempts[0].Converter, e.Attempts[0].Err)
	}
	msgs := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		msgs[i] = fmt.Sprintf("%s: %v", a.Converter, a.Err)
	}
	return fmt.Sprintf("%s (%d converters): %s", prefix, len(e.Attempts), strings.Join(msgs, "; "))
}

// Unwrap exposes every attempt's error, most specific converter first.
func (e *ConversionError) Unwrap() []error {
	errs := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// IsUnsupportedFormat reports whether err is, or wraps, an UnsupportedFormatError.
func IsUnsupportedFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedFormat)
}
