package advisor

import "fmt"

func benchmarkPrompt(description string) string {
	return fmt.Sprintf(`Você é um consultor de estratégia e finanças corporativas.
Forneça benchmarks de mercado para o projeto descrito abaixo.

Projeto: %s

Inclua, de forma objetiva e em português:
- ROI típico observado em projetos semelhantes (faixa percentual)
- Prazo usual de retorno do investimento
- Principais riscos e fatores críticos de sucesso
- Exemplos de empresas ou setores que realizaram iniciativas parecidas

Responda em no máximo 250 palavras, usando tópicos em markdown.`, description)
}

func suggestionsPrompt(description string) string {
	return fmt.Sprintf(`Você é um consultor de estratégia que monta portfólios de inovação
segundo os horizontes Core, Adjacente e Transformacional.

Contexto da empresa:
%s

Sugira de 4 a 6 projetos estratégicos para esta empresa. Para cada projeto informe:
- name: nome curto do projeto
- category: "Core", "Adjacente" ou "Transformacional"
- impact: impacto esperado de 1 a 10
- complexity: complexidade de execução de 1 a 10
- description: uma frase descrevendo o projeto
- expectedReturn: retorno esperado em poucas palavras

Responda APENAS com JSON no formato:
{"projects": [{"name": "...", "category": "Core", "impact": 7, "complexity": 4, "description": "...", "expectedReturn": "..."}]}`, description)
}
