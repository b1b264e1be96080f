package latex

// symbols maps command names to the glyph emitted for them. It is built once
// at package init and only read afterwards.
var symbols = map[string]string{
	// Greek, lower case
	"alpha": "α", "beta": "β", "gamma": "γ", "delta": "δ", "epsilon": "ε",
	"varepsilon": "ε", "zeta": "ζ", "eta": "η", "theta": "θ", "vartheta": "ϑ",
	"iota": "ι", "kappa": "κ", "lambda": "λ", "mu": "μ", "nu": "ν", "xi": "ξ",
	"omicron": "ο", "pi": "π", "varpi": "ϖ", "rho": "ρ", "varrho": "ϱ",
	"sigma": "σ", "varsigma": "ς", "tau": "τ", "upsilon": "υ", "phi": "φ",
	"varphi": "φ", "chi": "χ", "psi": "ψ", "omega": "ω",

	// Greek, upper case
	"Gamma": "Γ", "Delta": "Δ", "Theta": "Θ", "Lambda": "Λ", "Xi": "Ξ",
	"Pi": "Π", "Sigma": "Σ", "Upsilon": "Υ", "Phi": "Φ", "Psi": "Ψ",
	"Omega": "Ω",

	// Binary operators and relations
	"times": "×", "div": "÷", "pm": "±", "mp": "∓", "cdot": "⋅", "ast": "∗",
	"star": "⋆", "circ": "∘", "bullet": "∙", "oplus": "⊕", "otimes": "⊗",
	"leq": "≤", "le": "≤", "geq": "≥", "ge": "≥", "neq": "≠", "ne": "≠",
	"approx": "≈", "equiv": "≡", "propto": "∝", "sim": "∼", "simeq": "≃",
	"cong": "≅", "ll": "≪", "gg": "≫", "perp": "⊥", "parallel": "∥",
	"mid": "∣",

	// Sets and logic
	"infty": "∞", "forall": "∀", "exists": "∃", "nexists": "∄",
	"partial": "∂", "nabla": "∇", "in": "∈", "notin": "∉", "ni": "∋",
	"subset": "⊂", "supset": "⊃", "subseteq": "⊆", "supseteq": "⊇",
	"cup": "∪", "cap": "∩", "emptyset": "∅", "varnothing": "∅",
	"neg": "¬", "lnot": "¬", "land": "∧", "wedge": "∧", "lor": "∨", "vee": "∨",
	"therefore": "∴", "because": "∵",

	// Arrows
	"rightarrow": "→", "to": "→", "leftarrow": "←", "gets": "←",
	"Rightarrow": "⇒", "Leftarrow": "⇐", "leftrightarrow": "↔",
	"Leftrightarrow": "⇔", "iff": "⇔", "implies": "⇒", "mapsto": "↦",
	"uparrow": "↑", "downarrow": "↓",

	// Large operators
	"sum": "∑", "prod": "∏", "coprod": "∐", "int": "∫", "iint": "∬",
	"iiint": "∭", "oint": "∮", "bigcup": "⋃", "bigcap": "⋂",

	// Miscellaneous
	"angle": "∠", "triangle": "△", "degree": "°", "prime": "′",
	"ldots": "…", "cdots": "⋯", "vdots": "⋮", "ddots": "⋱", "dots": "…",
	"hbar": "ℏ", "ell": "ℓ", "Re": "ℜ", "Im": "ℑ", "aleph": "ℵ",
	"langle": "⟨", "rangle": "⟩", "lfloor": "⌊", "rfloor": "⌋",
	"lceil": "⌈", "rceil": "⌉", "vert": "|", "Vert": "‖", "lvert": "|",
	"rvert": "|", "lVert": "‖", "rVert": "‖", "backslash": "\\",
	"lbrace": "{", "rbrace": "}",
}

// Symbol returns the glyph for a command name.
func Symbol(name string) (string, bool) {
	g, ok := symbols[name]
	return g, ok
}

// SymbolNames returns every command name in the symbol table.
func SymbolNames() []string {
	names := make([]string, 0, len(symbols))
	for name := range symbols {
		names = append(names, name)
	}
	return names
}

// functions are rendered upright as their own name.
var functions = map[string]bool{
	"sin": true, "cos": true, "tan": true, "cot": true, "sec": true, "csc": true,
	"sinh": true, "cosh": true, "tanh": true,
	"arcsin": true, "arccos": true, "arctan": true,
	"log": true, "ln": true, "lg": true, "exp": true,
	"lim": true, "min": true, "max": true, "sup": true, "inf": true,
	"det": true, "gcd": true, "deg": true, "dim": true, "ker": true, "arg": true,
}

// wrappers change only the typeface of their argument, so the argument is
// inlined and the wrapper itself produces nothing.
var wrappers = map[string]bool{
	"mathbf": true, "mathrm": true, "mathit": true, "mathsf": true, "mathtt": true,
	"textbf": true, "textit": true, "textrm": true, "text": true, "mbox": true,
	"operatorname": true, "boldsymbol": true,
}

// spacing commands, including control symbols such as \, and \;.
var spacing = map[string]bool{
	",": true, ";": true, ":": true, " ": true, "quad": true, "qquad": true,
}

// escaped characters that stand for themselves after a backslash.
var escaped = map[string]bool{
	"{": true, "}": true, "$": true, "%": true, "#": true, "&": true, "_": true,
}
