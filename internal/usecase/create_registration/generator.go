package create_registration

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// RandomRegistrationNoGenerator номер записи = yyyyMMddHHmmss + 6 случайных цифр
type RandomRegistrationNoGenerator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomRegistrationNoGenerator создает генератор номеров записи
func NewRandomRegistrationNoGenerator() *RandomRegistrationNoGenerator {
	return &RandomRegistrationNoGenerator{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate возвращает новый номер записи
func (g *RandomRegistrationNoGenerator) Generate(now time.Time) string {
	g.mu.Lock()
	suffix := g.rnd.Intn(1000000)
	g.mu.Unlock()

	return fmt.Sprintf("%s%0*d", now.Format(domain.RegistrationNoTimestampFmt), domain.RegistrationNoSuffixDigits, suffix)
}
