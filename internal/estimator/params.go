package estimator

// StageAdjustment aplica Factor à velocidade quando o percentual concluído é maior que Above
type StageAdjustment struct {
	Above  float64
	Factor float64
}

// FallbackRate define dias por tarefa para projetos com até MaxTasks tarefas
type FallbackRate struct {
	MaxTasks    int
	DaysPerTask float64
}

// Params reúne as heurísticas ajustáveis do estimador
type Params struct {
	// FallbackVelocity é usada quando todas as tarefas concluídas compartilham o mesmo instante.
	// Valor de produto, não derivado dos dados.
	FallbackVelocity float64
	// MinVelocity é o piso da velocidade ajustada (tarefas/dia)
	MinVelocity float64

	// Stages deve estar em ordem decrescente de Above; o primeiro que casar vence
	Stages             []StageAdjustment
	DefaultStageFactor float64

	SmallTailMaxRemaining int
	SmallTailDaysPerTask  float64

	LargeBacklogMinRemaining  int
	LargeBacklogMaxPercentage float64
	LargeBacklogCapDays       float64

	NearCompletePercentage float64
	NearCompleteCapDays    float64

	// FallbackRates em ordem crescente de MaxTasks; acima do último usa FallbackDaysPerTask
	FallbackRates       []FallbackRate
	FallbackDaysPerTask float64

	// AtRiskMaxDays é o maior atraso (em dias) ainda classificado como "At Risk"
	AtRiskMaxDays int

	// Workers limita quantos projetos são estimados em paralelo
	Workers int
}

// DefaultParams retorna os valores usados em produção
func DefaultParams() Params {
	return Params{
		FallbackVelocity: 0.5,
		MinVelocity:      0.1,
		Stages: []StageAdjustment{
			{Above: 80, Factor: 1.2},
			{Above: 50, Factor: 1.0},
			{Above: 20, Factor: 0.8},
		},
		DefaultStageFactor: 0.6,

		SmallTailMaxRemaining: 2,
		SmallTailDaysPerTask:  3,

		LargeBacklogMinRemaining:  20,
		LargeBacklogMaxPercentage: 20,
		LargeBacklogCapDays:       180,

		NearCompletePercentage: 90,
		NearCompleteCapDays:    30,

		FallbackRates: []FallbackRate{
			{MaxTasks: 5, DaysPerTask: 5},
			{MaxTasks: 15, DaysPerTask: 7},
		},
		FallbackDaysPerTask: 10,

		AtRiskMaxDays: 30,
		Workers:       1,
	}
}

// stageFactor retorna o ajuste de velocidade para o percentual concluído
func (p Params) stageFactor(completionPercentage float64) float64 {
	for _, s := range p.Stages {
		if completionPercentage > s.Above {
			return s.Factor
		}
	}
	return p.DefaultStageFactor
}

// clampDays aplica a primeira restrição aplicável; as restrições nunca são combinadas
func (p Params) clampDays(days float64, remaining int, completionPercentage float64) float64 {
	switch {
	case remaining <= p.SmallTailMaxRemaining:
		return maxFloat(days, float64(remaining)*p.SmallTailDaysPerTask)
	case remaining >= p.LargeBacklogMinRemaining && completionPercentage < p.LargeBacklogMaxPercentage:
		return minFloat(days, p.LargeBacklogCapDays)
	case completionPercentage > p.NearCompletePercentage:
		return minFloat(days, p.NearCompleteCapDays)
	}
	return days
}

// fallbackDays estima a duração de projetos sem nenhuma tarefa concluída utilizável
func (p Params) fallbackDays(totalTasks int) float64 {
	rate := p.FallbackDaysPerTask
	for _, r := range p.FallbackRates {
		if totalTasks <= r.MaxTasks {
			rate = r.DaysPerTask
			break
		}
	}
	return float64(totalTasks) * rate
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
