package html

import "testing"

func TestSanitize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"keeps content", `<p>Hi <b>there</b></p>`, `<p>Hi <b>there</b></p>`},
		{"drops scripts", `<p>a</p><script>x()</script>`, `<p>a</p>`},
		{"strips handlers", `<img src="a.png" onerror="x()">`, `<img src="a.png">`},
		{"strips javascript urls", `<a href="javascript:alert(1)">x</a>`, `<a>x</a>`},
		{"drops styles", `<style>p{}</style>text`, `text`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SanitizeString(tc.in)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
