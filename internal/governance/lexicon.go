package governance

import "regexp"

// All patterns and word lists operate on normalized text: lower-case with
// diacritics folded, so "solução" is matched as "solucao".

var directSolutionPatterns = compileAll(
	// pt
	`\b(solucao|resposta|codigo|implementacao) (completa|completo|inteira|inteiro|pronta|pronto|final|toda|todo)\b`,
	`\b(da|de|passa|manda|mostra|entrega|escreve|escreva|gera|gere)( pra mim| para mim)? (a|o|toda a|todo o) (solucao|resposta|codigo)( do| da| deste| desse| para o| para a)? (desafio|exercicio|problema|atividade|tarefa)\b`,
	`\b(resolve|resolva|faz|faca|termina|termine)( o| a| esse| este| essa| esta)? (desafio|exercicio|problema|atividade|tarefa|tudo)( inteiro| todo)? (pra|para|por) mim\b`,
	`\bfaz(er)? tudo (pra|para|por) mim\b`,
	`\b(escreva|escreve|gere|gera) todo o codigo\b`,
	// en
	`\b(full|complete|entire|whole|final) (solution|code|answer|implementation)\b`,
	`\bgive me the (solution|answer|code)\b`,
	`\bwrite (all|the entire|the whole|the complete|the full) (of )?(the )?code\b`,
	`\bdo (everything|it all|all of it|the whole thing|my homework|the (challenge|exercise|assignment|task)) for me\b`,
	`\bsolve (this|the|my) (challenge|exercise|problem|task|assignment) for me\b`,
	`\bjust (give|send|paste) me the code\b`,
)

type weightedPattern struct {
	re     *regexp.Regexp
	weight float64
}

var socialEngineeringPatterns = []weightedPattern{
	{regexp.MustCompile(`\bignore (all )?(the |your )?(previous|prior|above|earlier) (instructions|rules|prompts|directions)\b`), 1.0},
	{regexp.MustCompile(`\b(developer|dev|god|admin|debug|dan) mode\b`), 1.0},
	{regexp.MustCompile(`\bforget (all |the |your )?(rules|instructions|restrictions|guidelines)\b`), 1.0},
	{regexp.MustCompile(`\b(jailbreak|do anything now)\b`), 1.0},
	{regexp.MustCompile(`\b(ignore|ignora|ignorar|desconsidere|desconsidera)( todas)? (as )?(instrucoes|regras|orientacoes)( anteriores)?\b`), 1.0},
	{regexp.MustCompile(`\b(esqueca|esquece|esquecer)( todas)? (as )?(regras|instrucoes|restricoes)\b`), 1.0},
	{regexp.MustCompile(`\bmodo (desenvolvedor|dev|deus|admin|debug)\b`), 1.0},
	{regexp.MustCompile(`\b(system prompt|prompt do sistema)\b`), 1.0},
	{regexp.MustCompile(`\b(without|sem) (any )?(restrictions|restricoes|limits|limites|filtros|filters)\b`), 1.0},
	{regexp.MustCompile(`\b(pretend|imagine) (you are|to be|that you)\b`), 0.5},
	{regexp.MustCompile(`\bact as\b`), 0.5},
	{regexp.MustCompile(`\b(finja|finge) (que|ser)\b`), 0.5},
	{regexp.MustCompile(`\baja como\b`), 0.5},
	{regexp.MustCompile(`\bi am (your|the) (teacher|instructor|professor|admin|developer)\b`), 0.5},
	{regexp.MustCompile(`\bsou (o |a |seu |sua )?(professor|professora|instrutor|instrutora|admin|administrador|desenvolvedor)\b`), 0.5},
	{regexp.MustCompile(`\b(the teacher|o professor|a professora) (said|allowed|disse|permitiu|autorizou)\b`), 0.5},
	{regexp.MustCompile(`\b(no one|nobody) will know\b|\bninguem vai saber\b`), 0.5},
}

var codeRequestPattern = regexp.MustCompile(
	`\b(write|escrev\w*|crie|cria|criar|create|generate|ger[ae]|implement\w*|codigo|code|snippet|script|funcao|function)\b`,
)

var educationalMarkers = []string{
	"como", "how", "why", "por que", "porque", "explain", "explique", "explica", "entender",
	"understand", "o que e", "what is", "what are", "diferenca", "difference", "melhor forma",
	"best way", "exemplo", "example", "duvida", "conceito", "concept", "quando usar",
	"when to use", "dica", "hint", "help me", "me ajude", "ajuda",
}

var smallTalkMarkers = []string{
	"tudo bem", "how are you", "bom dia", "boa tarde", "boa noite", "good morning",
	"qual seu nome", "what is your name", "conte uma piada", "tell me a joke",
}

// offTopicStems mark subjects unrelated to programming.
var offTopicStems = []string{
	"futebol", "football", "soccer", "novela", "filme", "movie", "musica", "music", "song",
	"receita", "recipe", "cozinh", "cook", "weather", "clima", "politic", "eleica", "election",
	"horoscop", "piada", "joke", "namorad", "girlfriend", "boyfriend", "viagem", "travel",
	"ferias", "vacation", "celebr", "fofoca", "gossip", "aposta", "lottery", "loteria",
	"netflix", "anime", "basquete", "basketball",
}

// topicLexicon maps a programming topic to word stems. Stems of four or more
// characters match by prefix; shorter ones must match exactly.
var topicLexicon = map[string][]string{
	"authentication": {"jwt", "token", "auth", "autentic", "authentic", "login", "logout", "oauth", "senha", "password", "sessao", "session", "bearer"},
	"api":            {"api", "rest", "endpoint", "rota", "route", "middleware", "express", "http", "request", "requisic", "controller", "graphql"},
	"database":       {"sql", "banco", "database", "query", "consulta", "mongo", "postgres", "mysql", "tabela", "table", "schema", "orm"},
	"testing":        {"teste", "test", "jest", "mocha", "vitest", "unitario", "mock", "assert", "tdd"},
	"security":       {"seguranc", "security", "xss", "csrf", "injection", "injecao", "hash", "bcrypt", "criptograf", "encrypt", "sanitiz", "validac", "validation"},
	"frontend":       {"react", "vue", "angular", "html", "css", "dom", "component", "frontend", "jsx"},
	"backend":        {"node", "backend", "servidor", "server", "deno"},
	"algorithms":     {"algoritm", "algorithm", "array", "lista", "loop", "recurs", "ordenac", "sort", "busca", "search", "complexidade", "fila", "pilha", "stack", "queue", "grafo", "graph"},
	"language":       {"javascript", "typescript", "python", "java", "golang", "funcao", "function", "variav", "variable", "classe", "class", "objeto", "object", "async", "await", "promise", "callback", "tipo", "type"},
	"devops":         {"docker", "deploy", "git", "pipeline", "kubernetes", "container"},
	"debugging":      {"erro", "error", "bug", "debug", "exception", "excecao", "stacktrace", "falha"},
}

var portugueseMarkers = map[string]bool{
	"como": true, "nao": true, "voce": true, "que": true, "para": true, "uma": true, "um": true,
	"do": true, "da": true, "de": true, "no": true, "na": true, "meu": true, "minha": true,
	"fazer": true, "codigo": true, "solucao": true, "desafio": true, "esta": true, "isso": true,
	"por": true, "qual": true, "quero": true, "preciso": true, "vou": true, "pra": true,
}

var englishMarkers = map[string]bool{
	"how": true, "the": true, "what": true, "why": true, "is": true, "are": true, "my": true,
	"this": true, "that": true, "to": true, "does": true, "can": true, "code": true,
	"solution": true, "please": true, "you": true, "with": true, "for": true, "give": true,
	"write": true, "should": true, "i": true,
}

// stopwords are ignored when comparing a prompt with a challenge context.
var stopwords = map[string]bool{
	// en
	"the": true, "a": true, "an": true, "is": true, "are": true, "was": true, "were": true,
	"do": true, "does": true, "did": true, "have": true, "has": true, "be": true, "will": true,
	"would": true, "could": true, "should": true, "can": true, "not": true, "and": true,
	"or": true, "but": true, "if": true, "then": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true, "of": true, "on": true,
	"to": true, "with": true, "about": true, "it": true, "its": true, "this": true, "that": true,
	"what": true, "which": true, "who": true, "how": true, "when": true, "where": true,
	"why": true, "you": true, "me": true, "i": true, "my": true, "your": true, "we": true,
	"please": true, "use": true, "using": true,
	// pt
	"o": true, "os": true, "um": true, "uma": true, "de": true, "da": true,
	"das": true, "dos": true, "no": true, "na": true, "nos": true, "nas": true,
	"em": true, "e": true, "que": true, "para": true, "pra": true, "com": true, "por": true,
	"se": true, "eu": true, "meu": true, "minha": true, "como": true, "qual": true,
	"isso": true, "esse": true, "essa": true, "este": true, "esta": true, "ao": true,
	"mais": true, "muito": true, "ja": true, "nao": true, "sim": true,
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}
