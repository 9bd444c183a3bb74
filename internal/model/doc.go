// Package model содержит артефакты обученного классификатора риска.
//
// Структура:
//   - encoder.go — LabelEncoder для категориальных колонок (с расширением на новые метки)
//   - scaler.go  — StandardScaler
//   - softmax.go — мультиномиальная логистическая регрессия на gonum/mat
//   - explain.go — Explainer, нормализация формы атрибуции, точные SHAP для линейной модели
//   - bundle.go  — версионированный артефакт модели (JSON)
//
// Пакет ничего не знает о студентах: на вход матрицы признаков
// в порядке Bundle.FeatureNames.
package model
