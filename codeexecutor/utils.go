// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package codeexecutor

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"unicode"

	"github.com/MakeNowJust/heredoc/v2"
	"google.golang.org/genai"

	"github.com/go-a2a/agentflow/types"
)

// ExtractCodeAndTruncateContent returns the first code block of content and
// drops every part after it.
//
// An executable code part without a code execution result following it wins.
// Otherwise the text parts are joined and searched for a block enclosed by one
// of delimiters; the content is then rewritten to the text before the block
// followed by an executable code part. The empty string means no code was found.
func ExtractCodeAndTruncateContent(content *genai.Content, delimiters []types.DelimiterPair) string {
	if content == nil || len(content.Parts) == 0 {
		return ""
	}

	for i, part := range content.Parts {
		if part == nil || part.ExecutableCode == nil {
			continue
		}
		if i == len(content.Parts)-1 || content.Parts[i+1] == nil || content.Parts[i+1].CodeExecutionResult == nil {
			content.Parts = content.Parts[:i+1]
			return part.ExecutableCode.Code
		}
	}

	var (
		firstText *genai.Part
		texts     []string
	)
	for _, part := range content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if firstText == nil {
			firstText = part
		}
		texts = append(texts, part.Text)
	}
	if firstText == nil || len(delimiters) == 0 {
		return ""
	}

	m := codeBlockPattern(delimiters).FindStringSubmatch(strings.Join(texts, "\n"))
	if m == nil {
		return ""
	}
	prefix, code := m[1], m[2]
	if code == "" {
		return ""
	}

	parts := make([]*genai.Part, 0, 2)
	if prefix != "" {
		p := *firstText
		p.Text = prefix
		parts = append(parts, &p)
	}
	content.Parts = append(parts, BuildExecutableCodePart(code))

	return code
}

func codeBlockPattern(delimiters []types.DelimiterPair) *regexp.Regexp {
	leading := make([]string, len(delimiters))
	trailing := make([]string, len(delimiters))
	for i, d := range delimiters {
		leading[i] = regexp.QuoteMeta(d.Start)
		trailing[i] = regexp.QuoteMeta(d.End)
	}
	return regexp.MustCompile(`(?s)^(.*?)(?:` + strings.Join(leading, "|") + `)(.*?)(?:` + strings.Join(trailing, "|") + `)`)
}

// BuildExecutableCodePart returns a Python executable code part.
func BuildExecutableCodePart(code string) *genai.Part {
	return genai.NewPartFromExecutableCode(code, genai.LanguagePython)
}

// BuildCodeExecutionResultPart returns the part reporting result to the model.
func BuildCodeExecutionResultPart(result *types.CodeExecutionResult) *genai.Part {
	if result.Stderr != "" {
		return genai.NewPartFromCodeExecutionResult(genai.OutcomeFailed, result.Stderr)
	}

	var sections []string
	if result.Stdout != "" || len(result.OutputFiles) == 0 {
		sections = append(sections, "Code execution result:\n"+result.Stdout+"\n")
	}
	if len(result.OutputFiles) > 0 {
		names := make([]string, len(result.OutputFiles))
		for i, f := range result.OutputFiles {
			names[i] = "`" + f.Name + "`"
		}
		sections = append(sections, "Saved artifacts:\n"+strings.Join(names, ","))
	}

	return genai.NewPartFromCodeExecutionResult(genai.OutcomeOK, strings.Join(sections, "\n\n"))
}

// ConvertCodeExecutionParts rewrites a trailing executable code part, or a
// lone code execution result part, of content into delimited text so that
// models without native code execution can read it. Result contents become
// user contents.
func ConvertCodeExecutionParts(content *genai.Content, codeBlockDelimiter, resultDelimiters types.DelimiterPair) {
	if content == nil || len(content.Parts) == 0 {
		return
	}

	last := content.Parts[len(content.Parts)-1]
	switch {
	case last == nil:
	case last.ExecutableCode != nil:
		content.Parts[len(content.Parts)-1] = genai.NewPartFromText(
			codeBlockDelimiter.Start + last.ExecutableCode.Code + codeBlockDelimiter.End,
		)
	case len(content.Parts) == 1 && last.CodeExecutionResult != nil:
		// multi-part contents are generated by the model and left as is
		content.Parts[0] = genai.NewPartFromText(
			resultDelimiters.Start + last.CodeExecutionResult.Output + resultDelimiters.End,
		)
		content.Role = genai.RoleUser
	}
}

// DataFileExtensions maps the MIME types of the data files which are
// extracted from requests to their file extensions.
var DataFileExtensions = map[string]string{
	"text/csv": ".csv",
}

// dataFileHelperLib defines explore_df, used to summarize input data frames.
var dataFileHelperLib = heredoc.Doc(`
	import pandas as pd

	def crop(s: str, max_chars: int = 64) -> str:
	  """Crops a string to max_chars characters."""
	  return s[: max_chars - 3] + '...' if len(s) > max_chars else s

	def explore_df(df: pd.DataFrame) -> None:
	  """Prints some information about a pandas DataFrame."""

	  with pd.option_context(
	      'display.max_columns', None, 'display.expand_frame_repr', False
	  ):
	    # Print the column names to never encounter KeyError when selecting one.
	    df_dtypes = df.dtypes

	    # Obtain information about data types and missing values.
	    df_nulls = (len(df) - df.isnull().sum()).apply(
	        lambda x: f'{x} / {df.shape[0]} non-null'
	    )

	    # Explore unique total values in columns using '.unique()'.
	    df_unique_count = df.apply(lambda x: len(x.unique()))

	    # Explore unique values in columns using '.unique()'.
	    df_unique = df.apply(lambda x: crop(str(list(x.unique()))))

	    df_info = pd.concat(
	        (
	            df_dtypes.rename('Dtype'),
	            df_nulls.rename('Non-Null Count'),
	            df_unique_count.rename('Unique Values Count'),
	            df_unique.rename('Unique Values'),
	        ),
	        axis=1,
	    )
	    df_info.index.name = 'Columns'
	    print(f"""Total rows: {df.shape[0]}
	Total columns: {df.shape[1]}

	{df_info}""")
	`)

// DataFilePreprocessingCode returns the code exploring file, or the empty
// string when the file type is not supported.
func DataFilePreprocessingCode(file *types.CodeExecutionFile) string {
	if file.MIMEType != "text/csv" {
		return ""
	}
	varName := DataFrameVarName(file.Name)
	return fmt.Sprintf(heredoc.Doc(`
		%s

		# Input dataframe variable name
		%s = pd.read_csv(%q)
		# Use `+"`explore_df`"+` to guide my analysis.
		explore_df(%s)
		`), dataFileHelperLib, varName, file.Name, varName)
}

// DataFrameVarName returns the Python variable holding the data frame of fileName.
func DataFrameVarName(fileName string) string {
	stem := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	name := strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, stem)
	return "df_" + name
}
