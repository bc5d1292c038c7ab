package extraction

import (
	"fmt"
	"strings"

	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
)

var fieldHints = map[models.CanonicalField]string{
	models.FieldAge:            "edad",
	models.FieldSex:            "sexo/género, M/F o 1/0",
	models.FieldChestPainType:  "tipo de dolor en el pecho",
	models.FieldRestingBP:      "presión arterial en reposo",
	models.FieldCholesterol:    "colesterol",
	models.FieldFastingBS:      "azúcar en sangre en ayunas",
	models.FieldRestingECG:     "ECG en reposo",
	models.FieldMaxHR:          "frecuencia cardíaca máxima",
	models.FieldRestingHR:      "frecuencia cardíaca en reposo",
	models.FieldExerciseAngina: "angina por ejercicio",
	models.FieldOldpeak:        "depresión ST",
	models.FieldSTSlope:        "pendiente ST",
	models.FieldHeartDisease:   "enfermedad cardíaca",
}

// BuildPrompt renders the extraction instruction for one document. The
// field list always covers every canonical field.
func BuildPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extrae los siguientes valores médicos del texto, incluyendo sus unidades si están presentes.\n")
	b.WriteString("Si no encuentras algún valor, omítelo.\n\n")
	b.WriteString("Valores a buscar:\n")
	for _, field := range models.AllFields() {
		fmt.Fprintf(&b, "- %s (%s)\n", field, fieldHints[field])
	}
	b.WriteString("\nResponde ÚNICAMENTE con un objeto JSON, sin texto adicional ni bloques de código.\n")
	b.WriteString(`Cada clave es uno de los nombres anteriores y su valor es un escalar o un objeto {"value": ..., "unit": ...}.`)
	b.WriteString("\nEjemplo: {\"Age\": 62, \"RestingBP\": {\"value\": \"145\", \"unit\": \"mmHg\"}}\n\n")
	b.WriteString("Texto: ")
	b.WriteString(text)
	b.WriteString("\n")
	return b.String()
}
