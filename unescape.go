package scc

import "strings"

// unescapeString decodes the body of a string literal (quotes already
// stripped) into its runtime byte content, applying the same escape
// table the Lexer uses for character literals. Unknown escapes pass
// the following character through literally rather than erroring —
// the Lexer, not the escape table, is responsible for rejecting
// malformed input.
func unescapeString(raw string) []byte {
	var out []byte
	in := []byte(raw)
	for i := 0; i < len(in); i++ {
		c := in[i]
		if c != '\\' || i+1 >= len(in) {
			out = append(out, c)
			continue
		}
		i++
		out = append(out, escapeByte(in[i]))
	}
	return out
}

func escapeByte(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\':
		return '\\'
	case '\'':
		return '\''
	case '"':
		return '"'
	default:
		return c
	}
}

// escapeForAsm renders raw bytes as the body of a GNU-as .asciz string,
// escaping the handful of bytes that are special both to Go string
// syntax on the way in and to the assembler on the way out.
func escapeForAsm(b []byte) string {
	var sb strings.Builder
	for _, c := range b {
		switch c {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\000`)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
