// Package predict реализует пайплайн прогноза и объяснения риска отчисления.
//
// # Обзор
//
// Pipeline.BatchPredict принимает пакет записей студентов и для каждой
// возвращает domain.Prediction:
//
//   - уровень риска и распределение вероятностей
//   - профиль: стиль обучения, сильные и слабые стороны, интересы
//   - объяснение: до 6 признаков с наибольшим вкладом (SHAP)
//   - текстовое резюме, главные факторы, интервенции из каталога
//   - рекомендации (advice.Advisor или статические списки)
//
// # Шаги
//
//  1. Feature engineering (features.Engineer)
//  2. Проверка, что все признаки модели присутствуют (FeatureMismatchError)
//  3. Кодирование категорий; новые метки дописываются в энкодер
//  4. Пропуски → 0, масштабирование
//  5. Атрибуция (если есть Explainer); ошибка атрибуции не прерывает
//     пакет, а попадает в explanation_error каждой строки
//  6. predict / predict_proba и сборка результата
//
// Энкодеры, расширенные на новые метки, живут столько же, сколько Pipeline,
// и защищены мьютексом: BatchPredict можно вызывать конкурентно.
//
// # Обучение
//
// Train строит model.Bundle из размеченных записей тем же
// feature engineering и тем же построением матрицы.
package predict
