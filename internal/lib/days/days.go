// Package days содержит арифметику дней для триальных окон.
// Правила округления фиксированы: прошедшие дни считаются вниз,
// оставшиеся — вверх, чтобы на границе того же дня пользователь
// не увидел "0 дней" при ещё действующем доступе.
package days

import "time"

// Since возвращает количество полных дней, прошедших от start до now.
// Округление вниз; отрицательные значения обрезаются до нуля.
func Since(start, now time.Time) int {
	d := int(now.Sub(start).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// Until возвращает количество дней, оставшихся от now до end.
// Округление вверх: истечение через три часа — это ещё "1 день".
// Отрицательные значения обрезаются до нуля.
func Until(now, end time.Time) int {
	diff := end.Sub(now)
	if diff <= 0 {
		return 0
	}
	d := int(diff.Hours() / 24)
	if diff%(24*time.Hour) != 0 {
		d++
	}
	return d
}
